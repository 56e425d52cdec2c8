// Package hal implements the SH-2 hardware adaptation layer over a
// two-wire bus.
package hal

// The sensor hub signals pending data with an active-low edge interrupt.
// The interrupt handler only latches a timestamp and raises the peer-ready
// flag; all bus traffic happens in the polling context inside Read, Write
// and Fetch.
//
// Every inbound frame is fetched with two bus transactions at the same
// address:
//
//   [len lo][len hi]          2 bytes, little-endian, bit 15 is the
//                             continuation flag and not part of the length
//   [payload ... ]            len bytes
//
// At most one fetched frame is held between the peer and the consumer.
