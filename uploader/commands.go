package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natserract/splist/pkg/config"
	"github.com/natserract/splist/pkg/excel"
	"github.com/natserract/splist/pkg/record"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExcelCmd(opts *rootOptions) *cobra.Command {
	var sheet string

	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "excel <path>",
		Short: "Upload every row of an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			a, err := newApp(ctx, opts, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := excel.ReadRecords(path, sheet)
			if err != nil {
				a.logger.Error("Failed to read Excel file", zap.String("path", path), zap.Error(err))
				return err
			}
			fmt.Printf("Read %d rows from %s\n", len(records), path)

			metrics := a.uploader.WithContinueOnError(continueOnError).SendAll(ctx, path, records)
			succeeded, failed := metrics.Snapshot()

			fmt.Println("Upload finished")
			fmt.Printf("  List: %s\n", a.cfg.TargetListTitle)
			fmt.Printf("  Rows: %d succeeded, %d failed, %d skipped\n", succeeded, failed, len(records)-succeeded-failed)

			if failed > 0 {
				return fmt.Errorf("%d of %d rows failed", failed, len(records))
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep uploading after a row fails instead of stopping")
	return cmd
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send [file|-]",
		Short: "Upload a single record given as a JSON object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src := "-"
			if len(args) == 1 {
				src = args[0]
			}

			// Prompts and a record on stdin cannot share the input
			var in io.Reader = cmd.InOrStdin()
			if src == "-" {
				in = nil
			}
			a, err := newApp(ctx, opts, in, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := readRecordFrom(src, cmd.InOrStdin())
			if err != nil {
				return err
			}

			item, err := a.uploader.Upload(ctx, rec)
			if err != nil {
				return fmt.Errorf("record was not added: %w", err)
			}
			fmt.Printf("Record added to %s (id %d)\n", a.cfg.TargetListTitle, item.ID)
			return nil
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire an access token and store it in the token cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.AuthMode != config.AuthModeApp || a.tokens == nil {
				return fmt.Errorf("token command requires auth_mode %q", config.AuthModeApp)
			}

			result, err := a.tokens.Acquire(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Access token acquired, expires at %s\n", result.ExpiresOn.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("Token cache: %s\n", a.cfg.TokenCachePath)
			return nil
		},
	}
}

// readRecordFrom reads a JSON object from the file at src, or from stdin when src is "-".
func readRecordFrom(src string, stdin io.Reader) (record.Record, error) {
	var data []byte
	var err error
	if src == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return parseRecord(data)
}

// parseRecord decodes a flat JSON object. Non-string values keep their JSON text.
func parseRecord(data []byte) (record.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if raw == nil {
		return nil, errors.New("record must be a JSON object")
	}

	rec := make(record.Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			rec[k] = fmt.Sprint(val)
		default:
			nested, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
			}
			rec[k] = string(nested)
		}
	}
	return rec, nil
}
