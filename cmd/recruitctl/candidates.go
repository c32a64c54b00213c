package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"recruitai/internal/client"
	"recruitai/internal/localstore"
	"recruitai/internal/storage"
	"recruitai/internal/views"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"ls"},
	Short:   "List scored candidates",
	Example: `  recruitctl candidates --status shortlisted
  recruitctl candidates --job-id job_42 --sort name --dir asc
  recruitctl candidates --local`,
	RunE: runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)

	candidatesCmd.Flags().String("job-id", "", "only candidates of this role")
	candidatesCmd.Flags().String("status", "", "shortlisted, review or rejected")
	candidatesCmd.Flags().StringP("query", "q", "", "match name, email or current role")
	candidatesCmd.Flags().String("sort", "", "score, name or date")
	candidatesCmd.Flags().String("dir", "", "asc or desc")
	candidatesCmd.Flags().Bool("local", false, "show the last ranked list saved on this machine")
}

func runCandidates(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	var cands []views.CandidateView
	if local, _ := cmd.Flags().GetBool("local"); local {
		cands, err = localRanked(cmd.Context(), e)
	} else {
		opts := client.ListOptions{}
		opts.JobID, _ = cmd.Flags().GetString("job-id")
		opts.Status, _ = cmd.Flags().GetString("status")
		opts.Query, _ = cmd.Flags().GetString("query")
		opts.Sort, _ = cmd.Flags().GetString("sort")
		opts.Dir, _ = cmd.Flags().GetString("dir")
		cands, err = e.api.Candidates(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}

	if len(cands) == 0 {
		fmt.Println("No candidates yet. Score some resumes with 'recruitctl submit'")
		return nil
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Candidates (%d)", len(cands))))
	fmt.Println(candidateTable(cands))
	return nil
}

func localRanked(ctx context.Context, e *env) ([]views.CandidateView, error) {
	var ranked []*storage.Candidate
	err := e.state.GetJSON(ctx, localstore.KeyRankedCandidates, &ranked)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return views.ProjectAll(ranked), nil
}

var statusColors = map[storage.Status]lipgloss.Color{
	storage.StatusShortlisted: lipgloss.Color("10"),
	storage.StatusReview:      lipgloss.Color("11"),
	storage.StatusRejected:    lipgloss.Color("9"),
}

// candidateTable renders one row per candidate, coloured by status.
func candidateTable(cands []views.CandidateView) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("#", "NAME", "EMAIL", "ROLE", "SCORE", "STATUS", "TAGS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 5 && row >= 0 && row < len(cands) {
				return cell.Foreground(statusColors[cands[row].Status])
			}
			return cell
		})

	for i, c := range cands {
		t.Row(
			strconv.Itoa(i+1),
			c.Name,
			c.Email,
			c.CurrentRole,
			strconv.FormatFloat(c.Score, 'f', -1, 64),
			string(c.Status),
			strings.Join(c.Tags, ", "),
		)
	}
	return t.String()
}
