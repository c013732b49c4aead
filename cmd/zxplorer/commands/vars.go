package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/vars"
)

// VarsCmd manages prompt variables
var VarsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Manage prompt variables (__name__ placeholders)",
	Long: `Manage the prompt variables referenced as __name__ in prompts.

Each variable is a TOML file in the vars directory holding a value list;
substitution picks one value per seed:

  zxplorer vars list
  zxplorer vars show style
  zxplorer vars set style "oil painting" "watercolor" "pencil sketch"`,
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all defined variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := vars.NewStore(cfg.Vars.Dir)
		if err != nil {
			return err
		}

		defined := store.List()
		if len(defined) == 0 {
			pterm.Info.Printfln("no variables defined in %s", cfg.Vars.Dir)
			return nil
		}

		rows := pterm.TableData{{"Name", "Values", "Description"}}
		for _, v := range defined {
			rows = append(rows, []string{
				v.Name,
				fmt.Sprintf("%d", len(v.Values)),
				v.Description,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var varsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a variable's values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := vars.NewStore(cfg.Vars.Dir)
		if err != nil {
			return err
		}

		v, ok := store.Get(args[0])
		if !ok {
			pterm.Error.Printfln("variable %q is not defined", args[0])
			return nil
		}

		pterm.DefaultSection.Println(v.Name)
		if v.Description != "" {
			pterm.Println(v.Description)
		}
		for _, value := range v.Values {
			pterm.Printfln("  - %s", value)
		}
		return nil
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set <name> <value>...",
	Short: "Create or replace a variable",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := vars.NewStore(cfg.Vars.Dir)
		if err != nil {
			return err
		}

		description, _ := cmd.Flags().GetString("description")
		v := vars.Variable{
			Name:        args[0],
			Description: description,
			Values:      args[1:],
		}
		if err := store.Save(v); err != nil {
			return err
		}

		pterm.Success.Printfln("saved %s with %d value(s); use it as __%s__",
			v.Name, len(v.Values), v.Name)
		return nil
	},
}

func init() {
	varsSetCmd.Flags().String("description", "", "Human-readable description of the variable")

	VarsCmd.AddCommand(varsListCmd)
	VarsCmd.AddCommand(varsShowCmd)
	VarsCmd.AddCommand(varsSetCmd)
}
