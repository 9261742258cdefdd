package runner

import (
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
)

// AliasSource resolves alias names to their declared members.
type AliasSource interface {
	Alias(name string) ([]string, bool)
}

// Expand flattens name into its primitive task sequence. Aliases are
// substituted depth-first in declared order and may shadow primitive
// names. Repeated members are kept; a member that leads back to an alias
// still being expanded is a cycle.
func Expand(aliases AliasSource, name string) ([]models.TaskName, error) {
	var (
		out     []models.TaskName
		path    []string
		onStack = make(map[string]bool)
	)

	var visit func(n string) error
	visit = func(n string) error {
		members, isAlias := aliases.Alias(n)
		if !isAlias {
			task, err := models.ParseTaskName(n)
			if err != nil {
				return errorutil.UnknownTaskError(n)
			}
			out = append(out, task)
			return nil
		}

		if onStack[n] {
			cycle := append([]string(nil), path[indexOf(path, n):]...)
			return errorutil.AliasCycleError(append(cycle, n))
		}

		onStack[n] = true
		path = append(path, n)
		for _, m := range members {
			if err := visit(m); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onStack[n] = false
		return nil
	}

	if err := visit(name); err != nil {
		return nil, err
	}
	return out, nil
}

func indexOf(s []string, v string) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return 0
}
