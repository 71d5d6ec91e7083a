package order

import (
	"crypto/rand"
	"fmt"
)

// numberPrefix is the human-readable order number prefix. Numbers look
// like ALT-7KQ2-M4RX and double as bank-transfer payment references, so
// the alphabet drops easily confused characters (0/O, 1/I/L).
const (
	numberPrefix   = "ALT"
	numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	numberGroupLen = 4
)

func newOrderNumber() (string, error) {
	buf := make([]byte, numberGroupLen*2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", numberPrefix, buf[:numberGroupLen], buf[numberGroupLen:]), nil
}
