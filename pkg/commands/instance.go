// Package commands implements the map transformation operations. Each
// command receives an Instance holding the open database handles and the
// logging/progress view, plus its parsed arguments.
package commands

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/elog"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// StandardWarning is printed before any mutating command runs.
const StandardWarning = "This tool can permanently damage your map database. " +
	"Always EXIT the game and BACK UP the map before use."

// ErrAborted is returned when the user declines the confirmation prompt.
var ErrAborted = errors.New("aborted by user")

// Func is the signature shared by all command implementations.
type Func func(inst *Instance, args *Args) error

// Def describes one command for the frontend.
type Def struct {
	Func Func
	Help string
	// NeedsSecondary marks commands that read from a second map file.
	NeedsSecondary bool
}

// Defs is the command registry.
var Defs = map[string]Def{
	"clone":         {Func: Clone, Help: "Clone the given area to a new location."},
	"overlay":       {Func: Overlay, Help: "Copy part or all of an input file into the primary file.", NeedsSecondary: true},
	"deleteblocks":  {Func: DeleteBlocks, Help: "Delete all mapblocks in the given area."},
	"fill":          {Func: Fill, Help: "Fill the given area with one node."},
	"replacenodes":  {Func: ReplaceNodes, Help: "Replace all of one node with another node."},
	"setparam2":     {Func: SetParam2, Help: "Set param2 values of a certain node and/or a certain area."},
	"deletemeta":    {Func: DeleteMeta, Help: "Delete metadata from a certain node and/or a certain area."},
	"setmetavar":    {Func: SetMetaVar, Help: "Set a variable in node metadata."},
	"replaceininv":  {Func: ReplaceInInv, Help: "Replace a certain item with another in node inventories."},
	"deletetimers":  {Func: DeleteTimers, Help: "Delete node timers from a certain node and/or area."},
	"deleteobjects": {Func: DeleteObjects, Help: "Delete static objects of a certain name and/or from a certain area."},
	"vacuum":        {Func: Vacuum, Help: "Rebuild the database file to reclaim free space."},
}

// Instance owns the open stores and the observer hooks for one command
// invocation.
type Instance struct {
	DB  *mapdb.Database
	SDB *mapdb.Database
	Log elog.View

	// PrintWarnings gates semantic warnings and the confirmation prompt.
	PrintWarnings bool

	// In is the confirmation input stream; defaults to stdin.
	In io.Reader

	progress elog.Progress
}

// Begin prints the standard warning and asks for confirmation. Commands call
// it before their first mutation.
func (inst *Instance) Begin() error {
	if inst.PrintWarnings {
		inst.Log.Warnf("%s", StandardWarning)

		in := inst.In
		if in == nil {
			in = os.Stdin
		}
		os.Stdout.WriteString("Proceed? (Y/n): ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return ErrAborted
		}
		if strings.ToLower(strings.TrimSpace(line)) != "y" {
			return ErrAborted
		}
	}
	return nil
}

// StartProgress opens a progress bar over total mapblocks.
func (inst *Instance) StartProgress(total int) {
	inst.progress = inst.Log.NewProgress("Processing", "blocks", int64(total))
}

// Step marks one mapblock as processed.
func (inst *Instance) Step() {
	if inst.progress != nil {
		inst.progress.Increment(1)
	}
}

// EndProgress closes the progress bar.
func (inst *Instance) EndProgress(success bool) {
	if inst.progress != nil {
		inst.progress.Finish(success)
		inst.progress = nil
	}
}

// Run validates args and dispatches to the named command. The caller is
// responsible for committing or discarding the database transaction
// afterwards.
func (inst *Instance) Run(name string, args *Args) error {
	def, ok := Defs[name]
	if !ok {
		return errors.Errorf("unknown command %q", name)
	}
	if err := args.verify(); err != nil {
		return err
	}
	if def.NeedsSecondary && inst.SDB == nil {
		return errors.New("command requires a secondary map file")
	}

	err := def.Func(inst, args)
	inst.EndProgress(err == nil)
	return err
}

// skipBlock logs a block that failed to parse and leaves it untouched.
func (inst *Instance) skipBlock(key int64, err error) {
	inst.Log.Warnf("skipping block %d: %v", key, err)
}
