// Package loggerprotocol implements the host side of the serial protocol
// spoken by Coweeta data loggers.
//
// # Protocol Overview
//
// The protocol is line oriented. The host writes a command letter followed
// by its argument; the logger answers with lines whose first byte, the tag,
// says what the line is:
//
//	<letter><body>\n   reply line of the command <letter>
//	X<message>\n       fault; the command failed
//	!<entry>\n         log entry
//	#<report>\n        device error report
//	 <text>\n          plain message (tag is a space)
//	>                  prompt, ends the batch
//
// Single-line commands get one reply line. Multi-line commands get any
// number of reply lines followed by an empty-body line carrying only the
// tag. Log entries, error reports and messages may arrive at any time; they
// are buffered per channel and handed out by the drain methods.
//
// File transfers leave the line format. After G<name>| the logger sends the
// file size as a bare decimal line, then exactly that many raw bytes, then
// the prompt. A single space cancels a transfer. Since the prompt is not
// terminated, output sent right after it shares its line, as in ">!entry".
//
// # Example Session
//
//	HOST: v
//	LOGR: vCOW0.0
//	LOGR: >
//	HOST: L
//	LOGR: LLOGGER00.CSV	1200
//	LOGR: LSYSTEM~1/
//	LOGR: L
//	LOGR: >
//	HOST: GLOGGER00.CSV|
//	LOGR: 1200
//	LOGR: <1200 raw bytes>>
//
// # Basic Usage
//
//	client := loggerprotocol.NewClient(
//	    loggerprotocol.WithLogger(logger),
//	    loggerprotocol.WithDownloadDir("data"),
//	)
//	err := client.ConnectSerial(ctx, "/dev/ttyUSB0", loggerprotocol.SerialConfig{})
//	if errors.Is(err, loggerprotocol.ErrUnsupportedDevice) {
//	    log.Fatal("not a data logger")
//	}
//	defer client.Disconnect()
//
//	files, err := client.ListFiles(ctx)
//	corrected, delta, err := client.SyncTime(ctx)
//
// # Downloads
//
// A download is driven by the caller one chunk at a time, so it can report
// progress and stop between chunks:
//
//	if err := client.StartDownload(ctx, "LOGGER04.CSV"); err != nil {
//	    return err
//	}
//	for client.DownloadState() == loggerprotocol.DownloadTransferring {
//	    remaining, n, err := client.DownloadChunk(ctx)
//	    ...
//	}
//
// AbortDownload cancels a transfer in progress. Starting a second download
// while bytes of the first are outstanding fails with ErrDownloadInProgress.
//
// # Errors
//
// Failures are reported with sentinel errors for errors.Is and typed errors
// for errors.As. A version mismatch is fatal: Connect disconnects and
// returns an error matching ErrUnsupportedDevice. Faults, timeouts and
// malformed replies only fail the operation at hand. Nothing is retried
// internally.
//
// # Thread Safety
//
// Client methods are serialized by a mutex. Session, Downloader and
// Demultiplexer are not safe for concurrent use and are meant to be owned
// by a single Client.
package loggerprotocol
