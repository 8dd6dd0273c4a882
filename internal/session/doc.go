// Package session drives a serial terminal session over a transport driver.
//
// A Session owns exactly one transport.Driver. It opens a port at the fixed
// 115200 8N1 framing, runs a background receive loop while connected, and
// serializes outbound writes. Every event is recorded in a transcript.Log
// that observers read after a change notification; failures are reported as
// system records rather than returned errors.
//
// # Basic Usage
//
//	drv, _ := native.New()
//	s, err := session.New(drv)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("no driver")
//	}
//	defer s.Close()
//
//	ch := s.Transcript().Subscribe()
//	s.Connect("/dev/ttyUSB0")
//	s.Send("AT")
//
//	for range ch {
//	    for _, rec := range s.Transcript().Records() {
//	        fmt.Println(rec.Direction, rec.Text)
//	    }
//	}
//
// # Connection State
//
// A session is either connected or disconnected. Connect while connected and
// Disconnect while disconnected do nothing. When a permission-gated driver
// asks the user for access, Connect records a hint and stays disconnected;
// calling Connect again after the grant completes the connection.
//
// # Timeouts
//
// Reads are bounded by the read timeout (default 200ms). A driver that
// reports an idle window with a zero-byte read is polled again after the
// idle delay (default 50ms). Writes are bounded by the write timeout
// (default 500ms). All three are set with functional options:
//
//	s, err := session.New(drv,
//	    session.WithReadTimeout(100*time.Millisecond),
//	    session.WithIdleDelay(20*time.Millisecond),
//	)
package session
