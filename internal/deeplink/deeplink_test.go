package deeplink

import (
	"bytes"
	"image/png"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUPIIntent(t *testing.T) {
	link, err := BuildUPIIntent(UPIIntent{
		PayeeVPA:    "x@bank",
		PayeeName:   "Biz",
		AmountPaise: 10000,
		Note:        "INVHH-2025-0001",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "upi://pay?"))
	assert.Equal(t, "upi://pay?pa=x%40bank&pn=Biz&am=100&tn=INVHH-2025-0001", link)
}

func TestBuildUPIIntent_EncodesNameAndDecimals(t *testing.T) {
	link, err := BuildUPIIntent(UPIIntent{
		PayeeVPA:    "studio@okhdfc",
		PayeeName:   "Hari & Co",
		AmountPaise: 1180050,
	})
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=studio%40okhdfc&pn=Hari%20%26%20Co&am=11800.50", link)
	assert.NotContains(t, link, "tn=")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Hari & Co", u.Query().Get("pn"))
}

func TestBuildUPIIntent_MissingPayee(t *testing.T) {
	_, err := BuildUPIIntent(UPIIntent{PayeeName: "Biz", AmountPaise: 100})
	assert.ErrorIs(t, err, ErrMissingPayee)
}

func TestBuildWhatsAppURL(t *testing.T) {
	link, err := BuildWhatsAppURL("98765 43210", "Hi Asha, pay ₹100.00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/919876543210?text="))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "+")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Hi Asha, pay ₹100.00", u.Query().Get("text"))

	_, err = BuildWhatsAppURL("12345", "hello")
	assert.ErrorIs(t, err, ErrInvalidWhatsAppNumber)
}

func TestBuildMailtoURL(t *testing.T) {
	link, err := BuildMailtoURL("asha@example.com", "Invoice HH-2025-0001", "Line one\nLine two")
	require.NoError(t, err)
	assert.Equal(t, "mailto:asha@example.com?subject=Invoice%20HH-2025-0001&body=Line%20one%0ALine%20two", link)

	_, err = BuildMailtoURL("", "s", "b")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRenderQRPNG(t *testing.T) {
	data, err := RenderQRPNG("upi://pay?pa=x%40bank&pn=Biz&am=100", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}
