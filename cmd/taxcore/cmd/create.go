package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apptx "3tcapital/taxcore/internal/application/transaction"
	coretx "3tcapital/taxcore/internal/core/transaction"
)

type createOptions struct {
	file    string
	include string
	dryRun  bool
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	co := &createOptions{}

	c := &cobra.Command{
		Use:   "create",
		Short: "Create transactions described in a YAML file",
		Long: `Create the transactions described in a YAML file.

The file holds one transaction per YAML document, or a list of them.
With --dry-run the assembled documents are printed and nothing is sent.

Example:
  taxcore create -f invoices.yaml
  taxcore create -f invoices.yaml --include Lines,Summary
  cat invoice.yaml | taxcore create -f - --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reqs, err := co.readInput(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if len(reqs) > cfg.Processing.MaxBatchSize {
				return fmt.Errorf("transactions: at most %d per run, got %d", cfg.Processing.MaxBatchSize, len(reqs))
			}
			if co.dryRun {
				cfg.Database.Enabled = false
			} else if err := cfg.AvaTax.RequireCredentials(); err != nil {
				return err
			}

			a := bootstrap(cmd.Context(), cfg, log)
			defer a.Close()

			include := co.include
			if include == "" {
				include = cfg.Processing.DefaultInclude
			}
			return createTransactions(cmd.Context(), cmd.OutOrStdout(), a.service, reqs, include, co.dryRun)
		},
	}

	c.Flags().StringVarP(&co.file, "file", "f", "", "YAML file with transactions, - for stdin")
	c.Flags().StringVar(&co.include, "include", "", "AvaTax $include value (default AVATAX_DEFAULT_INCLUDE)")
	c.Flags().BoolVar(&co.dryRun, "dry-run", false, "print the assembled documents without creating them")
	_ = c.MarkFlagRequired("file")

	return c
}

func (co *createOptions) readInput(stdin io.Reader) ([]apptx.Request, error) {
	if co.file == "-" {
		return readRequests(stdin)
	}
	f, err := os.Open(co.file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", co.file, err)
	}
	defer f.Close()
	return readRequests(f)
}

// readRequests decodes every YAML document in r. A document is either one
// transaction or a list of them.
func readRequests(r io.Reader) ([]apptx.Request, error) {
	dec := yaml.NewDecoder(r)

	var reqs []apptx.Request
	for doc := 1; ; doc++ {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		root := &node
		if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
			root = root.Content[0]
		}

		switch root.Kind {
		case yaml.SequenceNode:
			var batch []apptx.Request
			if err := root.Decode(&batch); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			reqs = append(reqs, batch...)
		case yaml.MappingNode:
			var req apptx.Request
			if err := root.Decode(&req); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			reqs = append(reqs, req)
		default:
			return nil, fmt.Errorf("document %d: expected a transaction or a list of transactions", doc)
		}
	}

	if len(reqs) == 0 {
		return nil, errors.New("no transactions in input")
	}
	return reqs, nil
}

type createOutput struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []createItem `json:"results"`
}

type createItem struct {
	Index    int              `json:"index"`
	Code     string           `json:"code,omitempty"`
	Document *coretx.Document `json:"document,omitempty"`
	Result   *coretx.Result   `json:"result,omitempty"`
	Errors   []string         `json:"errors,omitempty"`
}

// createTransactions previews or creates reqs and writes a JSON report to out.
// It fails when any transaction failed, after the report is written.
func createTransactions(ctx context.Context, out io.Writer, svc *apptx.Service, reqs []apptx.Request, include string, dryRun bool) error {
	report := createOutput{Total: len(reqs), Results: make([]createItem, 0, len(reqs))}

	if dryRun {
		for i, req := range reqs {
			item := createItem{Index: i, Code: req.Code}
			doc, err := svc.Preview(req)
			if err != nil {
				item.Errors = errorMessages(err)
				report.Failed++
			} else {
				item.Document = &doc
				report.Succeeded++
			}
			report.Results = append(report.Results, item)
		}
	} else {
		results, summary := svc.CreateBatch(ctx, reqs, include)
		report.Succeeded, report.Failed = summary.Succeeded, summary.Failed
		for _, res := range results {
			item := createItem{Index: res.Index, Code: res.Code, Result: res.Result}
			if res.Err != nil {
				item.Errors = errorMessages(res.Err)
			}
			report.Results = append(report.Results, item)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d transactions failed", report.Failed, report.Total)
	}
	return nil
}

func errorMessages(err error) []string {
	var verr *apptx.ValidationError
	if errors.As(err, &verr) {
		return verr.Messages()
	}
	return []string{err.Error()}
}
