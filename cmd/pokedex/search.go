package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/spf13/cobra"
)

var (
	searchChaos bool
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for Pokémon and print every result",
	Long: `Search requests every page of results for the query and prints the
aggregated list. A query with no matches prints nothing and exits successfully.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchChaos, "chaos", false, "ask the server to inject faults (overrides api.chaos)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	chaos := cfg.API.Chaos
	if cmd.Flags().Changed("chaos") {
		chaos = searchChaos
	}

	c, err := newClient(chaos)
	if err != nil {
		return err
	}
	defer c.Close()

	query := strings.Join(args, " ")
	pokemon, err := c.Search(commandContext(cmd), query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), pokemon)
	}
	return writeTable(cmd.OutOrStdout(), pokemon)
}

func writeJSON(w io.Writer, pokemon []client.Pokemon) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pokemon)
}

func writeTable(w io.Writer, pokemon []client.Pokemon) error {
	if len(pokemon) == 0 {
		_, err := fmt.Fprintln(w, "No Pokémon found.")
		return err
	}

	fmt.Fprintf(w, "Found %d Pokémon:\n", len(pokemon))
	fmt.Fprintln(w, strings.Repeat("-", 48))
	for _, p := range pokemon {
		if _, err := fmt.Fprintf(w, "#%-4d %-20s %s\n", p.ID, p.Name, p.Classification); err != nil {
			return err
		}
	}
	return nil
}
