package emulators

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"decoyd/internal/databus"
)

// Per-connection inactivity limit shared by the line-oriented decoys.
const readTimeout = 2 * time.Minute

func newModbus(deps Deps) *TCPEmulator {
	return newTCPEmulator("modbus", handleModbus, deps)
}

// handleModbus answers every request with an ILLEGAL FUNCTION exception
// that echoes the transaction and unit identifiers, which is enough for
// scanners to classify the endpoint as a live modbus device.
func handleModbus(conn net.Conn, sess *databus.Session, deps Deps) {
	buf := make([]byte, 260)
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		frame := buf[:n]
		sess.Log("request", hex.EncodeToString(frame))
		if n < 8 {
			continue
		}
		// MBAP: txn(2) proto(2) len(2) unit(1), then function code.
		resp := []byte{
			frame[0], frame[1],
			0x00, 0x00,
			0x00, 0x03,
			frame[6],
			frame[7] | 0x80,
			0x01,
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
		sess.Log("response", hex.EncodeToString(resp))
	}
}

func newS7comm(deps Deps) *TCPEmulator {
	return newTCPEmulator("s7comm", handleS7comm, deps)
}

// cotpConnectConfirm is the fixed TPKT+COTP CC frame sent in reply to
// any connection request; deeper S7 job handling is out of scope.
var cotpConnectConfirm = []byte{
	0x03, 0x00, 0x00, 0x0b,
	0x06, 0xd0, 0x00, 0x01, 0x00, 0x01, 0x00,
}

func handleS7comm(conn net.Conn, sess *databus.Session, deps Deps) {
	buf := make([]byte, 1024)
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		sess.Log("request", hex.EncodeToString(buf[:n]))
		if _, err := conn.Write(cotpConnectConfirm); err != nil {
			return
		}
		sess.Log("response", hex.EncodeToString(cotpConnectConfirm))
	}
}

func newHTTP(deps Deps) *TCPEmulator {
	return newTCPEmulator("http", handleHTTP, deps)
}

func handleHTTP(conn net.Conn, sess *databus.Session, deps Deps) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	r := bufio.NewReader(conn)

	requestLine, err := r.ReadString('\n')
	if err != nil {
		return
	}
	requestLine = strings.TrimRight(requestLine, "\r\n")
	sess.Log("request", requestLine)
	// Drain headers until the blank line.
	for {
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}

	body := defaultHTTPBody(deps.Bus)
	if deps.FS != nil {
		if page, err := deps.FS.ReadFile("index.html"); err == nil {
			body = page
		}
	}

	serverHeader := deps.Bus.GetOr("http_server_header", "Apache/1.3.29 (Unix)")
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nServer: %s\r\nContent-Type: text/html\r\nContent-Length: %d\r\nConnection: close\r\n\r\n", serverHeader, len(body))
	conn.Write(body)
	sess.Log("response", "200 OK")
}

func defaultHTTPBody(bus *databus.Databus) []byte {
	unit := bus.GetOr("unit", "device")
	return []byte(fmt.Sprintf("<html><head><title>%s</title></head><body><h1>%s</h1></body></html>\n", unit, unit))
}

func newFTP(deps Deps) *TCPEmulator {
	return newTCPEmulator("ftp", handleFTP, deps)
}

func handleFTP(conn net.Conn, sess *databus.Session, deps Deps) {
	banner := deps.Bus.GetOr("ftp_banner", "FTP server ready")
	fmt.Fprintf(conn, "220 %s\r\n", banner)

	r := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		sess.Log("command", line)

		verb := strings.ToUpper(line)
		if i := strings.IndexByte(line, ' '); i > 0 {
			verb = strings.ToUpper(line[:i])
		}
		switch verb {
		case "USER":
			io.WriteString(conn, "331 Password required\r\n")
		case "PASS":
			io.WriteString(conn, "230 Login successful\r\n")
		case "SYST":
			io.WriteString(conn, "215 UNIX Type: L8\r\n")
		case "PWD":
			io.WriteString(conn, "257 \"/\" is current directory\r\n")
		case "NOOP":
			io.WriteString(conn, "200 OK\r\n")
		case "LIST", "RETR", "STOR":
			io.WriteString(conn, "425 Can't open data connection\r\n")
		case "QUIT":
			io.WriteString(conn, "221 Goodbye\r\n")
			return
		default:
			io.WriteString(conn, "502 Command not implemented\r\n")
		}
	}
}

func newTelnet(deps Deps) *TCPEmulator {
	return newTCPEmulator("telnet", handleTelnet, deps)
}

func handleTelnet(conn net.Conn, sess *databus.Session, deps Deps) {
	banner := deps.Bus.GetOr("telnet_banner", "Welcome")
	fmt.Fprintf(conn, "%s\r\n", banner)

	r := bufio.NewReader(conn)
	for attempt := 0; attempt < 3; attempt++ {
		io.WriteString(conn, "login: ")
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		user, err := r.ReadString('\n')
		if err != nil {
			return
		}
		io.WriteString(conn, "Password: ")
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		pass, err := r.ReadString('\n')
		if err != nil {
			return
		}
		sess.Log("login", fmt.Sprintf("user=%s pass=%s",
			strings.TrimSpace(user), strings.TrimSpace(pass)))
		io.WriteString(conn, "\r\nLogin incorrect\r\n")
	}
}
