package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dbmigrate/binlog"
	"github.com/dbmigrate/binlog/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func printUsage() {
	errln("Usage:")
	errln()
	errln("binlog view [OPTIONS] FILE")
	errln("Arguments:")
	errln("    FILE        binlog file to start from. the files following it in")
	errln("                the index of the log (mysql-bin.index for mysql-bin.000002)")
	errln("                of the same directory are read as well.")
	errln("Options:")
	errln("    -v          log debug messages")
	errln("    -verify     verify event checksums")
	errln("    -lenient    accept rows events with fewer columns than their table map")
	errln("    -schema DSN load column names from information_schema if the server")
	errln("                does not log them, for example root:secret@tcp(localhost:3306)/")
	errln("    -metrics ADDR serve prometheus metrics on ADDR while reading")
	errln("Environment:")
	errln("    BINLOG_VERIFY_CHECKSUM, BINLOG_LENIENT_COLUMN_COUNT set the defaults of -verify and -lenient")
	errln("Examples:")
	errln("    binlog view /var/lib/mysql/binlog.000002")
	errln("    binlog view -schema root:secret@tcp(localhost:3306)/ ./dump/binlog.000002")
}

func main() {
	if len(os.Args) < 3 || os.Args[1] != "view" {
		printUsage()
		os.Exit(1)
	}
	opts := binlog.OptionsFromEnv()
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = printUsage
	verbose := fs.Bool("v", false, "")
	fs.BoolVar(&opts.VerifyChecksum, "verify", opts.VerifyChecksum, "")
	fs.BoolVar(&opts.LenientColumnCount, "lenient", opts.LenientColumnCount, "")
	dsn := fs.String("schema", "", "")
	metricsAddr := fs.String("metrics", "", "")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	opts.Logger = logrus.NewEntry(log)

	if *dsn != "" {
		loader, err := schema.Open(schema.Config{DSN: *dsn, Timeout: 10 * time.Second})
		if err != nil {
			log.Fatalln(err)
		}
		defer loader.Close()
		opts.OnTableMap = loader.Hook(context.Background())
	}

	if *metricsAddr != "" {
		opts.Metrics = binlog.NewMetrics(prometheus.DefaultRegisterer)
		go func() {
			if err := http.ListenAndServe(*metricsAddr, promhttp.Handler()); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	bl, err := binlog.Open(fs.Arg(0), opts)
	if err != nil {
		log.Fatalln(err)
	}
	defer bl.Close()
	if err := view(bl); err != nil {
		file, pos := bl.Location()
		log.WithFields(logrus.Fields{"file": file, "pos": pos}).Fatalln(err)
	}
}

func view(bl *binlog.Local) error {
	for {
		e, err := bl.NextEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		file, _ := bl.Location()
		printEvent(file, e)
	}
}

func printEvent(file string, e binlog.Event) {
	fmt.Printf("%s %s:0x%04x %-17s",
		time.Unix(int64(e.Header.Timestamp), 0).Format("2006-01-02 15:04:05"),
		file,
		e.Header.NextPos,
		e.Header.EventType,
	)
	switch d := e.Data.(type) {
	case *binlog.FormatDescriptionEvent:
		fmt.Println(" ", "v"+strconv.Itoa(int(d.BinlogVersion)), d.Version())
	case *binlog.TableMapEvent:
		fmt.Println(d.SchemaName + "." + d.TableName)
	case *binlog.QueryEvent:
		fmt.Println(d.Query)
	case *binlog.RotateEvent:
		fmt.Println(d.NextBinlog)
	case *binlog.GTIDEvent:
		fmt.Println(d.GTID())
	case *binlog.PreviousGTIDsEvent:
		fmt.Println(d.String())
	case *binlog.XidEvent:
		fmt.Println(d.XID)
	case *binlog.TransactionPayloadEvent:
		fmt.Println(len(d.Events), "events")
		for _, inner := range d.Events {
			fmt.Print("  ")
			printEvent(file, inner)
		}
	case *binlog.RowsEvent:
		if d.TableMap != nil {
			fmt.Print(d.TableMap.SchemaName + "." + d.TableMap.TableName)
		}
		fmt.Println()
		for i, row := range d.Rows {
			if e.Header.EventType.IsWriteRows() {
				printRow("     SET:", d.Columns(), row)
			} else {
				printRow("   WHERE:", d.Columns(), row)
			}
			if i < len(d.AfterRows) {
				printRow("     SET:", d.AfterColumns(), d.AfterRows[i])
			}
		}
	default:
		fmt.Println()
	}
}

func printRow(prefix string, cols []binlog.Column, row binlog.RowImage) {
	fmt.Print(prefix)
	for i, v := range row {
		col := cols[i].Name
		if col == "" {
			col = "@" + strconv.Itoa(cols[i].Ordinal+1)
		}
		fmt.Printf(" %s=%s", col, cols[i].ValueLiteral(v))
	}
	fmt.Println()
}

func errln(args ...interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, args...)
}
