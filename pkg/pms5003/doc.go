// Package pms5003 drives a Plantower PMS5003 particulate matter sensor.
package pms5003

// The sensor talks over a 9600 baud UART using fixed size frames:
//
//	0x42 0x4D | length (2, big-endian) | payload | checksum (2, big-endian)
//
// The length field counts the payload including the trailing checksum, and
// the checksum is the 16-bit sum of every byte that precedes it.
//
// In active mode the sensor streams data frames on its own every 200ms to
// 2.3s. In passive mode it only replies to an explicit read request. Mode
// switches are acknowledged with a short command frame, and a data frame that
// was already in flight may arrive ahead of the acknowledgement.
//
// Dev is not safe for concurrent use. A single polling loop owns it.
