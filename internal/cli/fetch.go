package cli

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"github.com/webharvest/scrape-client/pkg/batch"
	"github.com/webharvest/scrape-client/pkg/client"
)

var (
	fetchParams     []string
	extractTitle    bool
	extractLinks    bool
	outputFile      string
	fetchConcurrent int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL [URL...]",
	Short: "Fetch one or more URLs through the cache",
	Long: `Fetch retrieves the given URLs, serving from the local response cache
when a fresh copy exists. With --title or --links the HTML body is parsed
and only the extracted fields are printed; otherwise the raw body goes to
stdout. --output writes extraction results as CSV instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringArrayVar(&fetchParams, "param", nil, "query parameter as key=value (can be repeated)")
	fetchCmd.Flags().BoolVar(&extractTitle, "title", false, "extract the page title")
	fetchCmd.Flags().BoolVar(&extractLinks, "links", false, "extract all anchor hrefs")
	fetchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write results as CSV to this file")
	fetchCmd.Flags().IntVar(&fetchConcurrent, "concurrency", 4, "number of parallel fetch workers for multiple URLs")
	rootCmd.AddCommand(fetchCmd)
}

// fetchRow is one line of the fetch report.
type fetchRow struct {
	URL        string
	StatusCode int
	FromCache  bool
	Title      string
	Links      []string
	Body       []byte
	Err        error
}

func runFetch(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	params, err := parseParams(fetchParams)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)

	var rows []fetchRow
	if len(args) == 1 {
		res, err := c.Fetch(ctx, http.MethodGet, args[0], params)
		rows = append(rows, buildRow(args[0], res, err))
	} else {
		if len(params) > 0 {
			return fmt.Errorf("--param is only supported with a single URL")
		}
		bf := batch.NewBatchFetcher(c, batch.Config{MaxConcurrency: fetchConcurrent})
		results := bf.FetchAll(ctx, args)
		for _, u := range args {
			r := results[u]
			rows = append(rows, buildRow(u, r.Result, r.Error))
		}
	}

	if outputFile != "" {
		return writeCSV(outputFile, rows)
	}
	return printRows(cmd, rows)
}

func buildRow(rawurl string, res *client.Result, err error) fetchRow {
	row := fetchRow{URL: rawurl, Err: err}
	if err != nil || res == nil {
		return row
	}
	row.StatusCode = res.StatusCode
	row.FromCache = res.FromCache
	row.Body = res.Body

	if extractTitle || extractLinks {
		doc, perr := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
		if perr != nil {
			row.Err = fmt.Errorf("parse html: %w", perr)
			return row
		}
		if extractTitle {
			row.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		if extractLinks {
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				if href, ok := s.Attr("href"); ok && href != "" {
					row.Links = append(row.Links, href)
				}
			})
		}
	}
	return row
}

func printRows(cmd *cobra.Command, rows []fetchRow) error {
	var firstErr error
	for _, row := range rows {
		if row.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", row.URL, row.Err)
			if firstErr == nil {
				firstErr = row.Err
			}
			continue
		}

		if !extractTitle && !extractLinks {
			// Raw body mode only makes sense for a single URL; for
			// batches print a summary line instead.
			if len(rows) == 1 {
				cmd.Print(string(row.Body))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d cached=%t\n", row.URL, row.StatusCode, row.FromCache)
			continue
		}

		if extractTitle {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", row.URL, row.Title)
		}
		for _, link := range row.Links {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", row.URL, link)
		}
	}
	return firstErr
}

func writeCSV(path string, rows []fetchRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"url", "status", "from_cache", "title", "link"}); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Err != nil {
			continue
		}
		if len(row.Links) == 0 {
			record := []string{row.URL, fmt.Sprint(row.StatusCode), fmt.Sprint(row.FromCache), row.Title, ""}
			if err := w.Write(record); err != nil {
				return err
			}
			continue
		}
		for _, link := range row.Links {
			record := []string{row.URL, fmt.Sprint(row.StatusCode), fmt.Sprint(row.FromCache), row.Title, link}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseParams converts key=value flags into url.Values.
func parseParams(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}
