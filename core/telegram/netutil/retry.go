// Package netutil classifies transport errors seen while talking to the
// Telegram Bot API.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"syscall"
)

// Error kinds reported by Classify.
const (
	KindTimeout = "timeout"
	KindDNS     = "dns"
	KindDial    = "dial"
	KindReset   = "reset"
	KindTLS     = "tls"
	KindUnknown = "unknown"
)

// ShouldRetry reports whether err looks like a transient transport failure.
// Cancellation is never retried.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case KindTimeout, KindDial, KindReset:
		return true
	case KindDNS:
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr) && dnsErr.IsTemporary
	}
	return false
}

// Classify maps err to one of the Kind constants, or "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	// *url.Error and *net.OpError both implement net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindReset
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return KindTLS
	}
	return KindUnknown
}
