package server

import (
	"flag"

	"github.com/dmitrijs2005/preservd/internal/flagx"
)

// Mode selects what one invocation of the daemon does.
//
//	-o id   sync one object through the retry policy and exit
//	-q id   queue one object for the running daemon and exit
//	-f      force refresh, with -o or -q
//
// With neither -o nor -q the daemon runs until signalled.
type Mode struct {
	SyncObject    string
	EnqueueObject string
	Force         bool
}

// ParseMode reads the mode flags from args, ignoring everything else.
func ParseMode(args []string) (Mode, error) {
	var m Mode
	fs := flag.NewFlagSet("mode", flag.ContinueOnError)
	fs.StringVar(&m.SyncObject, "o", "", "sync one object and exit")
	fs.StringVar(&m.EnqueueObject, "q", "", "queue one object and exit")
	fs.BoolVar(&m.Force, "f", false, "force refresh")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-o", "-q", "-f"}, "-f")); err != nil {
		return Mode{}, err
	}
	return m, nil
}
