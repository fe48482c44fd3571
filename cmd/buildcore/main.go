// Command buildcore is a small development harness, not a build tool in
// its own right: it wires jobserver, subprocset and statustable together
// exactly the way a real build tool's scheduler would, so the three
// packages can be exercised end to end from a single process. It plays
// the same "hidden dev command" role as the teacher's CmdRunJob/
// CmdRunContainer: not user-facing, just a way to drive the core without
// a full build graph attached to it.
package main

import (
	"github.com/alecthomas/kong"
)

// version is set by a linker flag on release builds.
var version = "v0.0.0"

// config is the top level of the command line parse tree.
type config struct {
	Version kong.VersionFlag `short:"V" help:"Print version information"`

	Run CmdRun `cmd:"" help:"Run one command N times under a fresh jobserver pool"`
}

func main() {
	cli := &config{}
	kctx := kong.Parse(cli, kong.Vars{"version": version})
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
