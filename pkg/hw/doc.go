// Package hw binds the sensor driver to real hardware: a UART through
// go.bug.st/serial and GPIO lines and the I²C bus
// through periph.io.
package hw
