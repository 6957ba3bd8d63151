package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"biorag/internal/domain"
	"biorag/internal/tui"
)

var (
	searchJSON bool
	askJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "List the stored tools most similar to a question",
	Long: `Embeds the question and returns the nearest tools from the vector
database without calling the language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask for a tool recommendation",
	Long: `Retrieves the tools most similar to the question and asks the
configured language model to recommend among them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answer and tools as JSON")
	rootCmd.AddCommand(searchCmd, askCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	question := strings.Join(args, " ")
	st, err := a.Pipeline.Retrieve(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return printJSON(cmd, map[string]any{"tools": orEmpty(st.Retrieved)})
	}
	cmd.Println(tui.Hits(question, st.Retrieved))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	question := strings.Join(args, " ")
	st, err := a.Pipeline.Run(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if askJSON {
		return printJSON(cmd, map[string]any{"answer": st.Answer, "tools": orEmpty(st.Retrieved)})
	}
	cmd.Println(tui.Answer(question, st.Answer, st.Retrieved))
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func orEmpty(tools []domain.RetrievedTool) []domain.RetrievedTool {
	if tools == nil {
		return []domain.RetrievedTool{}
	}
	return tools
}
