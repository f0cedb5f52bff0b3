// shopctl is the operator CLI: seed demo data and render receipts to
// files without going through the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/oydokon/webshop/internal/fonts"
	"github.com/oydokon/webshop/internal/receipt"
	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "Operator tools for the webshop backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "webshop.db", "path to the sqlite database")

	root.AddCommand(receiptCmd(&dbPath))
	root.AddCommand(seedCmd(&dbPath))
	return root
}

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return st, nil
}

func receiptCmd(dbPath *string) *cobra.Command {
	var (
		out      string
		fontName string
		fontSize float64
		format   string
		fontsDir string
	)

	cmd := &cobra.Command{
		Use:   "receipt <order-id>",
		Short: "Render an order's receipt to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var orderID int64
			if _, err := fmt.Sscanf(args[0], "%d", &orderID); err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}

			st, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			reg, err := fonts.New("GoRegular", goregular.TTF)
			if err != nil {
				return err
			}
			if fontsDir != "" {
				reg.LoadDir(fontsDir)
			}

			opt := receipt.Options{Font: fontName, Size: fontSize}
			if format == "png" {
				opt.Format = receipt.FormatPNG
			}

			gen := receipt.NewGenerator(st, reg, log.Default())
			doc, err := gen.Generate(cmd.Context(), orderID, opt)
			if err != nil {
				return err
			}

			if out == "" {
				out = doc.Filename
			}
			if err := os.WriteFile(out, doc.Bytes, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d lines, %.0fpt page)\n",
				out, doc.DrawnLines, doc.Plan.PageHeight)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default receipt_<id>.<ext>)")
	cmd.Flags().StringVar(&fontName, "font", "", "registered font name")
	cmd.Flags().Float64Var(&fontSize, "size", 0, "body font size in points")
	cmd.Flags().StringVar(&format, "format", "pdf", "output format: pdf or png")
	cmd.Flags().StringVar(&fontsDir, "fonts", "", "directory of extra .ttf/.otf fonts")
	return cmd
}

func seedCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo products and one demo order",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			products := []store.Product{
				{Name: "Ko'k choy", Price: 15000, Description: "Green tea, 100g", Stock: 50},
				{Name: "Piyola", Price: 15000, Description: "Ceramic tea bowl", Stock: 30},
				{Name: "Choynak", Price: 90000, Description: "Teapot, 1l", Stock: 10},
			}

			var items []orderformat.Item
			for i := range products {
				id, err := st.CreateProduct(ctx, &products[i])
				if err != nil {
					return err
				}
				products[i].ID = id
				fmt.Fprintf(cmd.OutOrStdout(), "product %d: %s\n", id, products[i].Name)
			}
			items = append(items,
				orderformat.Item{ID: products[0].ID, Name: products[0].Name, Quantity: 2},
				orderformat.Item{ID: products[1].ID, Name: products[1].Name, Quantity: 1},
			)

			orderID, err := st.CreateOrder(ctx, &store.Order{
				Name:       "Aziz",
				Phone:      "+998901234567",
				Address:    "Tashkent",
				Products:   orderformat.Encode(items),
				TotalPrice: 45000,
				Status:     "new",
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d seeded\n", orderID)
			return nil
		},
	}
}
