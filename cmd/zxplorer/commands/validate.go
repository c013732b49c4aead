package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/oplang"
	"github.com/pyros-projects/zxplorer/oplang/parser"
)

// ValidateCmd checks a prompt expression without rendering anything
var ValidateCmd = &cobra.Command{
	Use:   "validate <prompt>",
	Short: "Check a prompt expression without rendering",
	Long: `Parse a prompt expression and report its structure, or the exact
position and suggested fix for the first error:

  zxplorer validate "cat + dog : 0.3"
  zxplorer validate "(oil painting + photo) % sketch : 5"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	node, err := parser.ParseText(prompt, oplang.DefaultRegistry())
	if err != nil {
		printPromptError(prompt, err)
		// Validation found a problem; the command itself succeeded
		return nil
	}

	pterm.Success.Println("prompt is valid")
	pterm.Printfln("structure: %s", parser.StructureString(node))
	return nil
}

// printPromptError renders a tokenize or parse error with a caret
// pointing at the offending character
func printPromptError(prompt string, err error) {
	offset := -1
	switch e := err.(type) {
	case *parser.TokenizeError:
		offset = e.Pos.Offset
		pterm.Error.Println(e.Message)
	case *parser.ParseError:
		offset = e.Offset()
		pterm.Println(e.FormatError(parser.ErrorContextTerminal))
	default:
		pterm.Error.Println(err.Error())
	}

	if offset >= 0 && offset <= len(prompt) {
		pterm.Println("  " + prompt)
		pterm.Println("  " + strings.Repeat(" ", offset) + pterm.Red("^"))
	}
}
