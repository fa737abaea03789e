package utils

import (
	"encoding/base64"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// UPIPaymentURI builds a upi://pay deep link for the given amount in paise.
func UPIPaymentURI(payeeID, payeeName, ref string, amount int64) string {
	q := url.Values{}
	q.Set("pa", payeeID)
	q.Set("pn", payeeName)
	q.Set("tr", ref)
	q.Set("tn", "Order "+ref)
	q.Set("am", decimal.New(amount, -2).StringFixed(2))
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode()
}

// QRDataURL renders content as a PNG QR code ready for an <img src>.
func QRDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
