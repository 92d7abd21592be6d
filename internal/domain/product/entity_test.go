package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	p, err := NewProduct("SKU-1", "铅笔", "HB", "支", 200)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, int64(200), p.Price)

	_, err = NewProduct("", "铅笔", "", "支", 200)
	assert.ErrorIs(t, err, ErrInvalidSKU)

	_, err = NewProduct("SKU-1", "铅笔", "", "支", 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestEffectivePrice_DiscountWindow(t *testing.T) {
	p, err := NewProduct("SKU-1", "铅笔", "", "支", 1000)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	from := base.Add(24 * time.Hour)
	until := base.Add(48 * time.Hour)
	require.NoError(t, p.SetDiscount(800, from, until))

	// 窗口前按标价
	assert.Equal(t, int64(1000), p.EffectivePrice(base))
	// 窗口内按折扣价,起点含端点
	assert.Equal(t, int64(800), p.EffectivePrice(from))
	assert.Equal(t, int64(800), p.EffectivePrice(from.Add(time.Hour)))
	// 终点不含端点
	assert.Equal(t, int64(1000), p.EffectivePrice(until))

	p.ClearDiscount()
	assert.Equal(t, int64(1000), p.EffectivePrice(from.Add(time.Hour)))
}

func TestSetDiscount_Validation(t *testing.T) {
	p, err := NewProduct("SKU-1", "铅笔", "", "支", 1000)
	require.NoError(t, err)

	now := time.Now()
	later := now.Add(time.Hour)

	// 折扣价不能高于或等于标价
	assert.ErrorIs(t, p.SetDiscount(1000, now, later), ErrInvalidDiscount)
	assert.ErrorIs(t, p.SetDiscount(0, now, later), ErrInvalidDiscount)
	// 窗口必须有序
	assert.ErrorIs(t, p.SetDiscount(800, later, now), ErrInvalidDiscount)
}

func TestActivateDeactivate(t *testing.T) {
	p, err := NewProduct("SKU-1", "铅笔", "", "支", 1000)
	require.NoError(t, err)

	p.Deactivate()
	assert.False(t, p.Active)
	p.Activate()
	assert.True(t, p.Active)
}
