package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joseph-ayodele/zero-paper-user/constants"
	"github.com/joseph-ayodele/zero-paper-user/internal/client"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
	"github.com/joseph-ayodele/zero-paper-user/internal/export"
	"github.com/joseph-ayodele/zero-paper-user/internal/receipts"
)

func cmdReceipts(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: receipts needs list, add, delete, image or export", errUsage)
	}
	switch args[0] {
	case "list":
		return receiptsList(ctx, a, args[1:])
	case "add":
		return receiptsAdd(ctx, a, args[1:])
	case "delete":
		return receiptsDelete(ctx, a, args[1:])
	case "image":
		return receiptsImage(ctx, a, args[1:])
	case "export":
		return receiptsExport(ctx, a, args[1:])
	default:
		return fmt.Errorf("%w: unknown receipts action %q", errUsage, args[0])
	}
}

// fetch lists the user's receipts, filtered by category and sorted.
func fetch(ctx context.Context, a *app, category, sortBy string) ([]entity.Receipt, error) {
	key, err := receipts.ParseSortKey(sortBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	list, err := a.receipts.List(ctx, "").Unwrap()
	if err != nil {
		return nil, err
	}
	return receipts.Sort(receipts.Filter(list, category), key), nil
}

func receiptsList(ctx context.Context, a *app, args []string) error {
	fs := newFlags("receipts list")
	category := fs.String("category", constants.FilterAll, "category substring, or 'all'")
	sortBy := fs.String("sort", string(receipts.SortByDate), "date or price")
	if err := parse(fs, args); err != nil {
		return err
	}
	fmt.Println("Loading receipts...")
	list, err := fetch(ctx, a, *category, *sortBy)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No receipts found.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tPRODUCT\tSTORE\tPRICE")
	for _, r := range list {
		date := ""
		if t := r.PurchaseTime(); !t.IsZero() {
			date = t.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f %s\n",
			r.ID, date, r.Category, r.ProductName, r.StoreName, r.Price.Float64(), r.Currency)
	}
	return tw.Flush()
}

func receiptsAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("receipts add")
	var (
		in    entity.ReceiptInput
		price = fs.String("price", "", "amount paid")
		image = fs.String("image", "", "path to a receipt picture")
	)
	fs.StringVar(&in.UID, "uid", "", "owner (defaults to the logged-in user)")
	fs.StringVar(&in.Category, "category", "", "receipt category")
	fs.StringVar(&in.Currency, "currency", constants.DefaultCurrency, "currency code")
	fs.StringVar(&in.ProductName, "product", "", "product name")
	fs.StringVar(&in.StoreName, "store", "", "store name")
	fs.StringVar(&in.StoreLocation, "location", "", "store location")
	fs.StringVar(&in.Date, "date", "", "purchase date (YYYY-MM-DD or DD.MM.YYYY HH:mm)")
	fs.StringVar(&in.ValidUptoDate, "valid-until", "", "warranty end date")
	fs.StringVar(&in.RefundableUptoDate, "refundable-until", "", "refund deadline")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *price == "" {
		return fmt.Errorf("%w: -price is required", errUsage)
	}
	p, err := entity.ParseAmount(*price)
	if err != nil {
		return fmt.Errorf("%w: -price: %v", errUsage, err)
	}
	in.Price = entity.Amount(p)

	fmt.Println("Saving receipt...")
	r, err := a.receipts.Add(ctx, in, *image).Unwrap()
	if err != nil {
		return err
	}
	if r.ID != "" {
		fmt.Printf("Receipt %s saved.\n", r.ID)
	} else {
		fmt.Println("Receipt saved.")
	}
	return nil
}

func receiptsDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("receipts delete")
	id := fs.String("id", "", "receipt id")
	if err := parse(fs, args); err != nil {
		return err
	}
	return printResult(a.receipts.Delete(ctx, *id).Unwrap())
}

func receiptsImage(ctx context.Context, a *app, args []string) error {
	fs := newFlags("receipts image")
	id := fs.String("id", "", "receipt id")
	out := fs.String("out", "", "output file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("%w: -out is required", errUsage)
	}
	img, err := a.receipts.Image(ctx, *id).Unwrap()
	if err != nil {
		return err
	}
	data, mimeType, err := client.DecodeImage(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if mimeType != "" {
		fmt.Printf("Saved %s image to %s.\n", mimeType, *out)
	} else {
		fmt.Printf("Saved image to %s.\n", *out)
	}
	return nil
}

func receiptsExport(ctx context.Context, a *app, args []string) error {
	fs := newFlags("receipts export")
	out := fs.String("out", "receipts.xlsx", "output XLSX file")
	category := fs.String("category", constants.FilterAll, "category substring, or 'all'")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := fetch(ctx, a, *category, string(receipts.SortByDate))
	if err != nil {
		return err
	}
	data, err := export.ReceiptsXLSX(list, a.logger)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported %d receipts to %s.\n", len(list), *out)
	return nil
}

func cmdAnalytics(ctx context.Context, a *app, args []string) error {
	fs := newFlags("analytics")
	category := fs.String("category", constants.FilterAll, "category substring, or 'all'")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := fetch(ctx, a, *category, string(receipts.SortByDate))
	if err != nil {
		return err
	}
	s := receipts.Summarize(list)
	fmt.Printf("%d receipts\n", s.Count)
	if s.Count == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	section := func(title string, buckets []receipts.Bucket) {
		fmt.Fprintf(tw, "\n%s\n", title)
		for _, b := range buckets {
			fmt.Fprintf(tw, "  %s\t%d\t%s %s\n", b.Key, b.Count, b.Total.StringFixed(2), b.Currency)
		}
	}
	section("Total", s.Totals)
	section("Average", s.Averages)
	section("By category", s.ByCategory)
	section("By month", s.ByMonth)
	section("Top stores", s.TopStores)
	return tw.Flush()
}
