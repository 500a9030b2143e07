package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"kawourelay/internal/constants"
)

// verifyGatewaySignature reads the request body and, when a webhook secret
// is configured, checks the gateway's HMAC-SHA512 signature over it. The
// body is returned for further decoding in either case.
func verifyGatewaySignature(r *http.Request, secretKey string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, constants.DefaultMaxRequestBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	if secretKey == "" {
		return body, nil
	}

	signatureHeader := r.Header.Get(constants.GatewayHmacHeader)
	if signatureHeader == "" {
		return nil, fmt.Errorf("missing signature header: %s", constants.GatewayHmacHeader)
	}

	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(signatureHeader)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	return body, nil
}
