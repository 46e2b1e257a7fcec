package coupon

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"kart-checkout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestCatalogFile creates a gzipped JSON-lines catalogue file.
func createTestCatalogFile(t *testing.T, filename string, lines []string) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), filename)

	file, err := os.Create(filePath)
	require.NoError(t, err)
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		_, err := gzipWriter.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}

	return filePath
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCatalogFile(t, "catalog.gz", []string{
		`{"id":1,"code":"FIXED5000","kind":"FIXED_AMOUNT","threshold":100000,"amount":5000}`,
		`{"id":2,"code":"BOGO","kind":"BUY_ONE_GET_ONE","productId":"P001","requiredQuantity":2}`,
		`{"id":3,"code":"FREESHIPPING","kind":"FREE_SHIPPING","threshold":50000}`,
		`{"id":4,"code":"MIRACLESALE","kind":"PERCENTAGE_SALE","percent":30,"windowStart":"04:00","windowEnd":"07:00"}`,
	})

	defs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, defs, 4)
	assert.Equal(t, model.KindFixedAmount, defs[0].Kind)
	assert.Equal(t, model.KindBuyOneGetOne, defs[1].Kind)
	assert.Equal(t, model.KindFreeShipping, defs[2].Kind)
	assert.Equal(t, model.KindPercentageSale, defs[3].Kind)
	assert.Equal(t, "MIRACLESALE", defs[3].Code)
}

func TestFileLoader_Load_WithEmptyLines(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCatalogFile(t, "catalog_with_empty.gz", []string{
		`{"id":1,"code":"A","kind":"FREE_SHIPPING","threshold":1000}`,
		"",
		"   ",
		`{"id":2,"code":"B","kind":"FREE_SHIPPING","threshold":2000}`,
	})

	defs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

func TestFileLoader_Load_UnknownKindFailsLoudly(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCatalogFile(t, "catalog_unknown.gz", []string{
		`{"id":1,"code":"A","kind":"FREE_SHIPPING","threshold":1000}`,
		`{"id":2,"code":"MYSTERY","kind":"LOYALTY_POINTS"}`,
	})

	defs, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownCouponKind)
	assert.Contains(t, err.Error(), "line 2")
	assert.Nil(t, defs)
}

func TestFileLoader_Load_MalformedJSON(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCatalogFile(t, "catalog_bad.gz", []string{`{"id":`})

	_, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalogue file")
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	defs, err := loader.Load(context.Background(), "/nonexistent/catalog.gz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open catalogue file")
	assert.Nil(t, defs)
}

func TestFileLoader_Load_NotGzipped(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(filePath, []byte(`{"id":1}`), 0o600))

	_, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestFileLoader_Load_ContextCancelled(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCatalogFile(t, "catalog.gz", []string{
		`{"id":1,"code":"A","kind":"FREE_SHIPPING","threshold":1000}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, filePath)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderCatalog_ListCoupons(t *testing.T) {
	filePath := createTestCatalogFile(t, "catalog.gz", []string{
		`{"id":7,"code":"FIXED","kind":"FIXED_AMOUNT","threshold":15000,"amount":5000}`,
	})

	catalog := NewLoaderCatalog(NewFileLoader(zerolog.Nop()), filePath, zerolog.Nop())

	defs, err := catalog.ListCoupons(context.Background())

	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, int64(7), defs[0].ID)
	assert.Equal(t, int64(5000), defs[0].FixedAmount.Amount)
}

func TestLoaderCatalog_ListCoupons_LoaderError(t *testing.T) {
	catalog := NewLoaderCatalog(NewFileLoader(zerolog.Nop()), "/missing.gz", zerolog.Nop())

	_, err := catalog.ListCoupons(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list coupons")
}
