// Package safehttp builds outbound HTTP clients that refuse to dial
// loopback, private and link-local addresses.
package safehttp

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrDenied is returned when a dial targets a blocked address.
type ErrDenied struct {
	Addr netip.Addr
}

func (e *ErrDenied) Error() string {
	return fmt.Sprintf("safehttp: access to %s is denied", e.Addr)
}

// Allowed reports whether addr may be dialed.
func Allowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsUnspecified()
}

// control runs after DNS resolution and before connect, so every resolved
// address is checked, not just the first.
func control(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("safehttp: parse %q: %w", address, err)
	}
	if !Allowed(ap.Addr()) {
		return &ErrDenied{Addr: ap.Addr()}
	}
	return nil
}

// Transport returns a transport that only dials public addresses.
func Transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: control,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialer.DialContext
	t.Proxy = nil
	return t
}

// NewClient returns a client using Transport with an overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: Transport()}
}
