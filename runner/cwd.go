package runner

import "os"

// cwdGuard saves the process working directory on construction and
// restores it on release, regardless of how the guarded work exited. This
// is the process-wide CWD mutation contract: handlers that need a fixed
// filename (subprocess TDAs, archive writers using relative paths) may
// change directory, but only ever within the scope of one TaskList.
type cwdGuard struct {
	original string
}

func newCWDGuard() (*cwdGuard, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &cwdGuard{original: wd}, nil
}

func (g *cwdGuard) release() error {
	return os.Chdir(g.original)
}
