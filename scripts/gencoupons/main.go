package main

import (
	"compress/gzip"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"kart-checkout/internal/coupon"
	"kart-checkout/internal/model"
)

// Writes a sample coupon catalogue as gzipped JSON lines, one record per
// line, in the format read by the file and S3 catalogue loaders.
func main() {
	out := flag.String("out", "data/coupons.jsonl.gz", "output file")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	newYear := time.Date(time.Now().Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
	spring := model.NewFixedAmountCoupon(5, "SPRING5000", 60000, 5000)
	spring.Description = "5,000 off orders of 60,000 or more until New Year"
	spring.ExpiresAt = &newYear

	defs := []model.CouponDefinition{
		model.NewFixedAmountCoupon(1, "SAVE1000", 15000, 1000),
		model.NewFreeShippingCoupon(2, "FREESHIP", 50000),
		model.NewPercentageSaleCoupon(3, "DAWN10", 10000, 10, model.TimeWindow{Start: 4 * time.Hour, End: 7 * time.Hour}),
		model.NewBuyOneGetOneCoupon(4, "MOUSE11", "P002", 2),
		spring,
	}

	if err := writeCatalog(*out, coupon.EncodeAll(defs)); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}

	fmt.Printf("Created %s with %d coupons\n", *out, len(defs))
	for _, def := range defs {
		fmt.Printf("  - %-11s %s\n", def.Code, def.Kind)
	}
}

func writeCatalog(filePath string, records []coupon.Record) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", rec.Code, err)
		}
	}

	return nil
}
