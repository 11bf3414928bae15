// Package export renders cart snapshots for downstream consumers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/izerwaren/b2bportal/internal/domain"
)

var cartHeader = []string{
	"itemId", "sku", "title", "quantity", "listPrice", "discountPercent", "discountSource", "unitPrice", "totalPrice",
}

// WriteCartCSV writes one row per cart line in cart order, followed by the summary totals
func WriteCartCSV(w io.Writer, summary *domain.CartSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(cartHeader); err != nil {
		return err
	}
	for _, item := range summary.Items {
		row := []string{
			item.ID.String(),
			item.SKU,
			item.Title,
			strconv.Itoa(item.Quantity),
			item.ListPrice.StringFixed(2),
			item.DiscountPercent.String(),
			string(item.DiscountSource),
			item.UnitPrice.StringFixed(2),
			item.TotalPrice.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	totals := [][]string{
		{},
		{"dealerTier", string(summary.DealerTier)},
		{"itemCount", strconv.Itoa(summary.ItemCount)},
		{"totalQuantity", strconv.Itoa(summary.TotalQuantity)},
		{"subtotal", summary.Subtotal.StringFixed(2)},
		{"totalDiscount", summary.TotalDiscount.StringFixed(2)},
		{"tierDiscountPercent", summary.TierDiscountPercent.String()},
		{"totalEstimated", summary.TotalEstimated.StringFixed(2)},
	}
	for _, rule := range summary.VolumeDiscountsApplied {
		totals = append(totals, []string{
			"volumeDiscount",
			fmt.Sprintf("%s %s%% at %d+", rule.AppliesTo, rule.DiscountPercent.String(), rule.MinQuantity),
		})
	}
	if err := cw.WriteAll(totals); err != nil {
		return err
	}
	return cw.Error()
}

// CartFilename is the download name for a cart export
func CartFilename(cart *domain.SavedCart) string {
	return fmt.Sprintf("cart-%s.csv", cart.ID.String()[:8])
}
