// Package robokassa implements the Robokassa merchant signature scheme and
// hosted payment page URL construction.
//
// Outgoing links are signed with Password #1 over
// "login:amount:invoice:password[:Shp_k=v...]"; incoming ResultURL
// notifications are verified with Password #2 over
// "amount:invoice:password[:Shp_k=v...]". Shp_ parameters are sorted
// lexicographically by key in both formulas.
package robokassa

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"telegram-club-subscription/internal/domain/model"
)

// ShpPrefix marks gateway pass-through parameters that participate in the
// signature. Anything else in the notification is ignored.
const ShpPrefix = "Shp_"

// FormatAmount renders an amount in rubles the way Robokassa expects it,
// e.g. 1990 -> "1990.00".
func FormatAmount(amountRUB int64) string {
	return fmt.Sprintf("%d.00", amountRUB)
}

// Sign computes the link-side signature:
// MD5(login:amount:invoice:password[:Shp_k=v...]), lowercase hex.
func Sign(merchantLogin, outSum, invoiceID, password string, shp map[string]string) string {
	base := merchantLogin + ":" + outSum + ":" + invoiceID + ":" + password
	return md5hex(base + shpSuffix(shp))
}

// VerifySignature checks a ResultURL notification signature:
// MD5(amount:invoice:password[:Shp_k=v...]), compared case-insensitively.
// The shp set must be exactly what the notification carried; inferring it
// from stored state would defeat the point of the signature.
func VerifySignature(outSum, invoiceID, signature, password string, shp map[string]string) bool {
	expected := md5hex(outSum + ":" + invoiceID + ":" + password + shpSuffix(shp))
	return strings.EqualFold(expected, signature)
}

// PaymentURL builds the hosted payment page URL for one product's merchant
// account, signed with Password #1.
func PaymentURL(baseURL string, acct model.MerchantAccount, amountRUB int64, description, invoiceID string, tgID int64, testMode bool) string {
	outSum := FormatAmount(amountRUB)

	shp := map[string]string{}
	if tgID > 0 {
		shp[ShpPrefix+"user_id"] = fmt.Sprintf("%d", tgID)
	}

	q := url.Values{}
	q.Set("MerchantLogin", acct.Login)
	q.Set("OutSum", outSum)
	q.Set("InvId", invoiceID)
	q.Set("Description", description)
	if testMode {
		q.Set("IsTest", "1")
	}
	for k, v := range shp {
		q.Set(k, v)
	}
	q.Set("SignatureValue", Sign(acct.Login, outSum, invoiceID, acct.Password1, shp))

	return baseURL + "?" + q.Encode()
}

// ExtractShp filters a notification's parameters down to the signed
// pass-through set.
func ExtractShp(params map[string]string) map[string]string {
	shp := map[string]string{}
	for k, v := range params {
		if strings.HasPrefix(k, ShpPrefix) {
			shp[k] = v
		}
	}
	return shp
}

func shpSuffix(shp map[string]string) string {
	if len(shp) == 0 {
		return ""
	}
	keys := make([]string, 0, len(shp))
	for k := range shp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(shp[k])
	}
	return b.String()
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
