package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/HoloHeri/internal/client"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

func newSitesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Browse and manage heritage sites",
	}
	cmd.AddCommand(
		newSitesListCmd(opts),
		newSitesGetCmd(opts),
		newSitesCreateCmd(opts),
		newSitesDeleteCmd(opts),
		newSitesSearchCmd(opts),
	)
	return cmd
}

func newSitesListCmd(opts *globalOptions) *cobra.Command {
	var params client.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of sites, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.ListSites(cmd.Context(), params)
			if err != nil {
				return err
			}
			printSites(cmd.OutOrStdout(), res.Data)
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d sites\n", res.Page, res.Pages, res.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 12, "Page size (max 100)")
	cmd.Flags().StringVar(&params.Tag, "tag", "", "Only sites carrying this tag")
	cmd.Flags().StringVarP(&params.Query, "query", "q", "", "Full-text search")
	return cmd
}

func newSitesGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one site as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.GetSite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}

func newSitesCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		fields map[string]string
		files  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a site from text fields and local media files",
		Example: `  holoheri sites create --field title="Sun Temple" --field tags="temple,odisha" \
    --file thumb=./konark.jpg --file glb=./konark.glb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make(map[model.MediaField]string, len(files))
			for field, path := range files {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "uploading %s (%s) as %s\n", path, humanize.Bytes(uint64(info.Size())), field)
				uploads[model.MediaField(field)] = path
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.CreateSite(cmd.Context(), fields, uploads)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", s.ID, s.Title)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&fields, "field", nil, "Text field as key=value (repeatable)")
	cmd.Flags().StringToStringVar(&files, "file", nil, "Media slot and local path as slot=path (thumb, glb, oldSitePhoto, newSitePhoto)")
	return cmd
}

func newSitesDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a site and its stored files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.DeleteSite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}

// newSitesSearchCmd reads queries line by line from stdin. Each line is
// debounced like keystrokes in a search box; --local filters one fetched page
// on the client instead of asking the server.
func newSitesSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		local    bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Interactive search: type a query per line, Ctrl-D to quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var (
				mu     sync.Mutex
				cached []model.Site
			)
			if local {
				res, err := c.ListSites(ctx, client.ListParams{Limit: 100})
				if err != nil {
					return err
				}
				cached = res.Data
			}
			search := func(query string) {
				mu.Lock()
				defer mu.Unlock()
				if local {
					printSites(out, client.FilterSites(cached, query))
					return
				}
				res, err := c.ListSites(ctx, client.ListParams{Query: query})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "search %q: %v\n", query, err)
					return
				}
				printSites(out, res.Data)
			}

			d := client.NewDebouncer(debounce, search)
			defer d.Stop()
			return readQueries(ctx, cmd.InOrStdin(), d)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Filter a fetched page locally instead of querying the server")
	cmd.Flags().DurationVar(&debounce, "debounce", client.DefaultDebounce, "Quiet period before searching (0 searches on every line)")
	return cmd
}

// readQueries feeds stdin lines to the debouncer. A line ending in "!" is
// searched immediately, and so is a query still pending at end of input.
func readQueries(ctx context.Context, in io.Reader, d *client.Debouncer) error {
	scanner := bufio.NewScanner(in)
	var (
		last    string
		pending bool
	)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if q, ok := strings.CutSuffix(line, "!"); ok {
			d.Flush(q)
			pending = false
			continue
		}
		d.Trigger(line)
		last, pending = line, true
	}
	if pending {
		d.Flush(last)
	}
	return scanner.Err()
}

func printSites(w io.Writer, sites []model.Site) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLOCATION\tTAGS\tCREATED")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Location, strings.Join(s.Tags, ","), humanize.Time(s.CreatedAt))
	}
	tw.Flush()
}
