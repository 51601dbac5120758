package e2e

import "encoding/base64"

func encode64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
