package base

import (
	"io"
	"net"

	"github.com/ValentinKolb/dSock/sock/common"
)

var Logger = common.GetLogger("sock/transport")

// TransmitResult describes what a Transmit call put on the wire
type TransmitResult struct {
	// Unsent is the suffix of the message that was not written. It aliases the
	// message passed to Transmit and is empty when everything was sent.
	Unsent []byte
	// Sent is the number of bytes written
	Sent int
	// Writes is the number of underlying write calls
	Writes int
	// Partial counts the writes that accepted fewer bytes than requested
	Partial int
}

// Transmit writes message to conn with a single underlying write.
//
// If the write accepts only a prefix of the message and ensureFullSent is
// false, the remaining suffix is returned in Unsent and no retry happens. If
// ensureFullSent is true the suffix is written again in a loop until the whole
// message is sent or a write fails. A failing write returns the error together
// with everything that was not sent.
func Transmit(conn net.Conn, message []byte, ensureFullSent bool) (TransmitResult, error) {
	res := TransmitResult{Unsent: message}

	for len(res.Unsent) > 0 {
		n, err := writeOnce(conn, res.Unsent)
		if n < 0 {
			n = 0
		}
		res.Writes++
		res.Sent += n
		res.Unsent = res.Unsent[n:]

		if err != nil {
			return res, err
		}
		if len(res.Unsent) == 0 {
			break
		}

		res.Partial++
		if n == 0 {
			// a write that neither fails nor makes progress would loop forever
			return res, io.ErrShortWrite
		}

		Logger.Debugf("Partial write to %s: %d bytes sent, %d remaining", conn.RemoteAddr(), n, len(res.Unsent))
		if !ensureFullSent {
			break
		}
	}

	return res, nil
}
