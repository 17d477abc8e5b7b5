package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/hailocam/hailocam/pkg/videox"
)

// naldump inspects an H264 elementary stream, either from a file or from a UDP
// port. Useful when the camera produces H264 instead of MJPEG and you need to
// see what's actually in the stream.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("naldump", "Analyze the NAL units of an H264 elementary stream")
	inputFile := parser.String("i", "input", &argparse.Options{Help: "Input .h264 file (if omitted, listen on UDP)", Default: ""})
	udpPort := parser.Int("", "udpport", &argparse.Options{Help: "UDP port to listen on", Default: 5000})
	seconds := parser.Int("", "seconds", &argparse.Options{Help: "How long to capture from UDP", Default: 5})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Print every NAL unit", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	var stream []byte
	if *inputFile != "" {
		stream, err = os.ReadFile(*inputFile)
		check(err)
		fmt.Printf("Read %v bytes from %v\n", len(stream), *inputFile)
	} else {
		stream, err = captureUDP(*udpPort, time.Duration(*seconds)*time.Second)
		check(err)
	}
	if len(stream) == 0 {
		fmt.Printf("No data\n")
		os.Exit(1)
	}

	fmt.Printf("First bytes: %v\n", videox.HexDump(stream, 32))

	info := videox.AnalyzeH264Stream(stream)
	fmt.Printf("\n%v NAL units\n", len(info.NALUs))

	if *verbose {
		for _, nalu := range info.NALUs {
			fmt.Printf("  %8d  sc%v  %-28v %7d bytes\n", nalu.Offset, nalu.StartCodeLen, videox.NALUTypeDescription(nalu.Type), nalu.Size)
		}
		fmt.Printf("\n")
	}

	for t, count := range info.CountByType {
		fmt.Printf("  %-28v %v\n", videox.NALUTypeDescription(t), count)
	}

	fmt.Printf("\nSPS: %v, PPS: %v, IDR: %v\n", info.HasSPS, info.HasPPS, info.HasIDR)
	if info.Width != 0 {
		fmt.Printf("Resolution (from SPS): %vx%v\n", info.Width, info.Height)
	}
	if info.IsDecodable() {
		fmt.Printf("Stream is decodable from the top\n")
	} else {
		fmt.Printf("Stream is NOT decodable from the top (a decoder must wait for SPS+PPS+IDR)\n")
	}
}

func captureUDP(port int, duration time.Duration) ([]byte, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	fmt.Printf("Listening on UDP port %v for %v\n", port, duration)

	stream := []byte{}
	buf := make([]byte, 65536)
	deadline := time.Now().Add(duration)
	nPackets := 0
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		if nPackets == 0 {
			fmt.Printf("First packet (%v bytes): %v\n", n, videox.HexDump(buf[:n], 32))
		}
		nPackets++
		stream = append(stream, buf[:n]...)
	}
	fmt.Printf("Captured %v packets, %v bytes\n", nPackets, len(stream))
	return stream, nil
}
