package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/random-geek/MapEdit/pkg/commands"
	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// addAreaFlags attaches the shared selection flags. Coordinate triples are
// given comma-separated, e.g. --p1 0,-16,32.
func addAreaFlags(cmd *cobra.Command) {
	cmd.Flags().IntSlice("p1", nil, "first corner of the area, as x,y,z in nodes")
	cmd.Flags().IntSlice("p2", nil, "second corner of the area, as x,y,z in nodes")
	cmd.Flags().Bool("invert", false, "select all mapblocks NOT in the given area")
}

func addOffsetFlag(cmd *cobra.Command) {
	cmd.Flags().IntSlice("offset", nil, "vector to move the area by, as x,y,z in nodes")
}

func addBlockmodeFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("blockmode", false, "operate on whole mapblocks")
}

func addSearchNodeFlag(cmd *cobra.Command) {
	cmd.Flags().String("searchnode", "", "name of node to search for")
}

// vec3Flag reads a named x,y,z flag, or nil when it was not given.
func vec3Flag(cmd *cobra.Command, name string) (*geom.Vec3, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	vals, err := cmd.Flags().GetIntSlice(name)
	if err != nil {
		return nil, err
	}
	if len(vals) != 3 {
		return nil, errors.Errorf("--%s takes exactly three values", name)
	}
	return &geom.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// parseSharedArgs collects the selection flags common to all commands.
func parseSharedArgs(cmd *cobra.Command) (*commands.Args, error) {
	args := &commands.Args{}

	p1, err := vec3Flag(cmd, "p1")
	if err != nil {
		return nil, err
	}
	p2, err := vec3Flag(cmd, "p2")
	if err != nil {
		return nil, err
	}
	if (p1 == nil) != (p2 == nil) {
		return nil, errors.New("missing --p1 or --p2 argument")
	}
	if p1 != nil {
		area := geom.AreaFromCorners(*p1, *p2)
		args.Area = &area
	}

	if cmd.Flags().Lookup("invert") != nil {
		args.Invert, _ = cmd.Flags().GetBool("invert")
	}
	if cmd.Flags().Lookup("offset") != nil {
		args.Offset, err = vec3Flag(cmd, "offset")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Lookup("blockmode") != nil {
		args.Blockmode, _ = cmd.Flags().GetBool("blockmode")
	}
	if cmd.Flags().Lookup("searchnode") != nil {
		args.SearchNode, _ = cmd.Flags().GetString("searchnode")
	}

	return args, nil
}

// runCommand opens the databases and dispatches to the named command,
// committing on success only.
func runCommand(name string, args *commands.Args, inputFile string) error {
	if flagFile == "" {
		return errors.New("a primary map file must be given with -f")
	}

	db, err := mapdb.Open(flagFile, false)
	if err != nil {
		return errors.Wrap(err, "failed to open primary database")
	}
	defer db.Close()

	inst := &commands.Instance{
		DB:            db,
		Log:           log,
		PrintWarnings: !flagNoWarnings,
	}

	if inputFile != "" {
		if inputFile == flagFile {
			return errors.New("primary and secondary map files are the same")
		}
		sdb, err := mapdb.Open(inputFile, true)
		if err != nil {
			return errors.Wrap(err, "failed to open secondary database")
		}
		defer sdb.Close()
		inst.SDB = sdb
	}

	if err := inst.Run(name, args); err != nil {
		if errors.Is(err, commands.ErrAborted) {
			log.Printf("Aborted.")
			return nil
		}
		return err
	}

	if db.Modified() {
		log.Printf("Committing to database...")
	}
	if err := db.Commit(); err != nil {
		return err
	}

	log.Printf("Finished.")
	return nil
}

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: commands.Defs["clone"].Help,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		return runCommand("clone", args, "")
	},
}

var overlayCmd = &cobra.Command{
	Use:   "overlay <input_file>",
	Short: commands.Defs["overlay"].Help,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		return runCommand("overlay", args, posArgs[0])
	},
}

var deleteBlocksCmd = &cobra.Command{
	Use:   "deleteblocks",
	Short: commands.Defs["deleteblocks"].Help,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		return runCommand("deleteblocks", args, "")
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill <replacenode>",
	Short: commands.Defs["fill"].Help,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		args.ReplaceNode = posArgs[0]
		return runCommand("fill", args, "")
	},
}

var replaceNodesCmd = &cobra.Command{
	Use:   "replacenodes <searchnode> <replacenode>",
	Short: commands.Defs["replacenodes"].Help,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		args.SearchNode = posArgs[0]
		args.ReplaceNode = posArgs[1]
		return runCommand("replacenodes", args, "")
	},
}

var setParam2Cmd = &cobra.Command{
	Use:   "setparam2 <value>",
	Short: commands.Defs["setparam2"].Help,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		args.ParamVal, err = strconv.Atoi(posArgs[0])
		if err != nil {
			return errors.Errorf("invalid param2 value %q", posArgs[0])
		}
		return runCommand("setparam2", args, "")
	},
}

var deleteMetaCmd = &cobra.Command{
	Use:   "deletemeta",
	Short: commands.Defs["deletemeta"].Help,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		return runCommand("deletemeta", args, "")
	},
}

var setMetaVarCmd = &cobra.Command{
	Use:   "setmetavar <key> <value>",
	Short: commands.Defs["setmetavar"].Help,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		args.MetaKey = posArgs[0]
		args.MetaValue = posArgs[1]
		return runCommand("setmetavar", args, "")
	},
}

var replaceInInvCmd = &cobra.Command{
	Use:   "replaceininv <searchitem> <replaceitem>",
	Short: commands.Defs["replaceininv"].Help,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		args.SearchItem = posArgs[0]
		args.ReplaceItem = posArgs[1]
		args.DeleteMeta, _ = cmd.Flags().GetBool("deletemeta")
		return runCommand("replaceininv", args, "")
	},
}

var deleteTimersCmd = &cobra.Command{
	Use:   "deletetimers",
	Short: commands.Defs["deletetimers"].Help,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		return runCommand("deletetimers", args, "")
	},
}

var deleteObjectsCmd = &cobra.Command{
	Use:   "deleteobjects [searchobj]",
	Short: commands.Defs["deleteobjects"].Help,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		args, err := parseSharedArgs(cmd)
		if err != nil {
			return err
		}
		if len(posArgs) == 1 {
			args.SearchObj = posArgs[0]
		}
		args.Items, _ = cmd.Flags().GetBool("items")
		return runCommand("deleteobjects", args, "")
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: commands.Defs["vacuum"].Help,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, posArgs []string) error {
		return runCommand("vacuum", &commands.Args{}, "")
	},
}

func init() {
	addAreaFlags(cloneCmd)
	addOffsetFlag(cloneCmd)
	addBlockmodeFlag(cloneCmd)

	addAreaFlags(overlayCmd)
	addOffsetFlag(overlayCmd)
	addBlockmodeFlag(overlayCmd)

	addAreaFlags(deleteBlocksCmd)

	addAreaFlags(fillCmd)
	addBlockmodeFlag(fillCmd)

	addAreaFlags(replaceNodesCmd)

	addAreaFlags(setParam2Cmd)
	addSearchNodeFlag(setParam2Cmd)

	addAreaFlags(deleteMetaCmd)
	addSearchNodeFlag(deleteMetaCmd)

	addAreaFlags(setMetaVarCmd)
	addSearchNodeFlag(setMetaVarCmd)

	addAreaFlags(replaceInInvCmd)
	addSearchNodeFlag(replaceInInvCmd)
	replaceInInvCmd.Flags().Bool("deletemeta", false, "delete item metadata when replacing items")

	addAreaFlags(deleteTimersCmd)
	addSearchNodeFlag(deleteTimersCmd)

	addAreaFlags(deleteObjectsCmd)
	deleteObjectsCmd.Flags().Bool("items", false, "search for item entities (dropped items)")
}
