// swotail decodes ITM trace captured from the SWO pin (through a UART
// adapter) or from a file, and prints the text on one stimulus port.
//
//	swotail -port /dev/ttyUSB0 -baud 115200
//	swotail -file trace.bin
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"clockcycle-go/internal/itm"

	"go.bug.st/serial"
)

func main() {
	port := flag.String("port", "", "serial device wired to SWO")
	baud := flag.Int("baud", 115200, "SWO baud rate")
	file := flag.String("file", "", "read a captured trace instead of a port")
	stim := flag.Uint("stim", 0, "stimulus port to print")
	list := flag.Bool("list", false, "list serial ports and exit")
	flag.Parse()

	if err := run(*port, *baud, *file, uint8(*stim), *list); err != nil {
		fmt.Fprintln(os.Stderr, "swotail:", err)
		os.Exit(1)
	}
}

func run(port string, baud int, file string, stim uint8, list bool) error {
	if list {
		ports, err := serial.GetPortsList()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	src, err := open(port, baud, file)
	if err != nil {
		return err
	}
	defer src.Close()

	return itm.Text(os.Stdout, itm.NewDecoder(src), stim)
}

func open(port string, baud int, file string) (io.ReadCloser, error) {
	switch {
	case file != "":
		return os.Open(file)
	case port != "":
		p, err := serial.Open(port, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", port, err)
		}
		return p, nil
	default:
		return nil, errors.New("need -port or -file")
	}
}
