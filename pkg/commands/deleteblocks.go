package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// DeleteBlocks removes every mapblock satisfying the selection.
func DeleteBlocks(inst *Instance, args *Args) error {
	if args.Area == nil {
		return errors.New("deleteblocks requires an area")
	}

	if err := inst.Begin(); err != nil {
		return err
	}

	keys, err := mapdb.GetMapblocks(inst.DB, inst.Log, nil, args.Area, args.Invert, false)
	if err != nil {
		return err
	}

	inst.StartProgress(len(keys))
	for _, key := range keys {
		inst.Step()
		if err := inst.DB.DeleteBlock(key); err != nil {
			return err
		}
	}

	return nil
}

// Vacuum commits pending changes and rebuilds the database file.
func Vacuum(inst *Instance, args *Args) error {
	inst.Log.Printf("Vacuuming database...")
	return inst.DB.Vacuum()
}
