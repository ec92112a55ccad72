package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/storage"
	"github.com/standardbeagle/xref/internal/store"
)

// minimum similarity of a node name offered as a suggestion
const suggestionThreshold = 0.6

// blobReport is the outcome of inspecting one stored node
type blobReport struct {
	storage.BlobSummary
	Error string `json:"error,omitempty"`
}

// StatsReport represents the totals for JSON output
type StatsReport struct {
	Backend   string `json:"backend"`
	Dir       string `json:"dir"`
	Nodes     int    `json:"nodes"`
	Bytes     int    `json:"bytes"`
	Relations int    `json:"relations"`
	Locations int    `json:"locations"`
	Invalid   int    `json:"invalid"`
}

// openFiles opens the configured blob storage; the memory backend keeps nothing
// between runs and is refused
func openFiles(c *cli.Context) (*config.Config, storage.FileManager, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	files, err := store.OpenFiles(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if files == nil {
		return nil, nil, fmt.Errorf("the %s backend keeps no stored nodes", cfg.Storage.Backend)
	}
	return cfg, files, nil
}

// inspectAll reads and inspects every blob with at most jobs concurrent readers.
// A blob that cannot be read aborts the walk; a blob that cannot be decoded is
// reported.
func inspectAll(ctx context.Context, files storage.FileManager, jobs int) ([]blobReport, error) {
	names, err := files.Names()
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = 1
	}

	reports := make([]blobReport, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := files.Read(name)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			summary, err := storage.Inspect(name, data)
			reports[i] = blobReport{BlobSummary: summary}
			if err != nil {
				reports[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// statsCommand shows totals over all stored nodes
func statsCommand(c *cli.Context) error {
	cfg, files, err := openFiles(c)
	if err != nil {
		return err
	}
	defer files.Close()

	reports, err := inspectAll(c.Context, files, 4)
	if err != nil {
		return err
	}

	stats := StatsReport{Backend: cfg.Storage.Backend, Dir: cfg.Storage.Dir, Nodes: len(reports)}
	for _, r := range reports {
		stats.Bytes += r.Size
		if r.Error != "" {
			stats.Invalid++
			continue
		}
		stats.Relations += len(r.Relations)
		stats.Locations += r.Locations
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, stats)
	}
	fmt.Fprintf(c.App.Writer, "Index: %s (%s)\n", stats.Dir, stats.Backend)
	fmt.Fprintf(c.App.Writer, "%d nodes, %d bytes, %d relations, %d locations (%d invalid)\n",
		stats.Nodes, stats.Bytes, stats.Relations, stats.Locations, stats.Invalid)
	return nil
}

// listCommand lists the stored nodes
func listCommand(c *cli.Context) error {
	_, files, err := openFiles(c)
	if err != nil {
		return err
	}
	defer files.Close()

	reports, err := inspectAll(c.Context, files, 4)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, reports)
	}
	for _, r := range reports {
		status := fmt.Sprintf("%d locations", r.Locations)
		if r.Error != "" {
			status = "invalid"
		}
		fmt.Fprintf(c.App.Writer, "%-24s %8d bytes  %016x  %s\n", r.Name, r.Size, r.Checksum, status)
	}
	return nil
}

// dumpCommand shows the relations of one node by raw ids
func dumpCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("dump requires a node name")
	}
	_, files, err := openFiles(c)
	if err != nil {
		return err
	}
	defer files.Close()

	data, err := files.Read(name)
	if errors.Is(err, os.ErrNotExist) {
		names, _ := files.Names()
		if similar := suggestNames(name, names); len(similar) > 0 {
			return fmt.Errorf("node %s not found, did you mean: %s", name, strings.Join(similar, ", "))
		}
		return fmt.Errorf("node %s not found", name)
	}
	if err != nil {
		return err
	}

	summary, err := storage.Inspect(name, data)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "node %s: format %d, context %d, %d bytes, checksum %016x\n",
		summary.Name, summary.Version, summary.ContextID, summary.Size, summary.Checksum)
	for _, relation := range summary.Relations {
		fmt.Fprintf(w, "  element %d relationship %d: %d locations\n",
			relation.ElementID, relation.RelationshipID, relation.Locations)
	}
	fmt.Fprintf(w, "%d relations, %d locations\n", len(summary.Relations), summary.Locations)
	return nil
}

// verifyCommand fails when any stored node cannot be decoded
func verifyCommand(c *cli.Context) error {
	_, files, err := openFiles(c)
	if err != nil {
		return err
	}
	defer files.Close()

	reports, err := inspectAll(c.Context, files, c.Int("jobs"))
	if err != nil {
		return err
	}

	invalid := 0
	for _, r := range reports {
		if r.Error != "" {
			invalid++
			fmt.Fprintf(c.App.Writer, "%s: %s\n", r.Name, r.Error)
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d nodes are invalid", invalid, len(reports))
	}
	fmt.Fprintf(c.App.Writer, "%d nodes ok\n", len(reports))
	return nil
}

// clearCommand deletes every stored node
func clearCommand(c *cli.Context) error {
	cfg, files, err := openFiles(c)
	if err != nil {
		return err
	}
	defer files.Close()

	if err := files.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Cleared %s\n", cfg.Storage.Dir)
	return nil
}

// suggestNames returns up to three names similar to name, best first
func suggestNames(name string, names []string) []string {
	type candidate struct {
		name  string
		score float32
	}
	var candidates []candidate
	for _, n := range names {
		score, err := edlib.StringsSimilarity(name, n, edlib.Levenshtein)
		if err != nil || score < suggestionThreshold {
			continue
		}
		candidates = append(candidates, candidate{n, score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
