// payrollctl is a small operator client for the flight gateway:
// upload a raw CSV, fetch a report, or list a tenant's files.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/mekarlab/payrollgate/proto"
)

func main() {
	addr := flag.String("addr", "localhost:9999", "gateway address")
	clientID := flag.String("client", "", "tenant client_id")
	password := flag.String("password", "", "tenant password")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall request timeout")
	flag.Parse()

	if flag.NArg() < 1 || *clientID == "" || *password == "" {
		usage()
		os.Exit(2)
	}

	conn, err := grpc.Dial(*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(pb.CodecName)),
	)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer conn.Close()

	client := pb.NewPayrollFlightClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "upload":
		if flag.NArg() != 2 {
			usage()
			os.Exit(2)
		}
		upload(ctx, client, *clientID, *password, flag.Arg(1))
	case "fetch":
		if flag.NArg() != 3 {
			usage()
			os.Exit(2)
		}
		fetch(ctx, client, *clientID, *password, flag.Arg(1), flag.Arg(2))
	case "list":
		list(ctx, client, *clientID, *password)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  payrollctl -client ID -password PW upload FILE.csv
  payrollctl -client ID -password PW fetch {get_full_clean|get_budget_report} TARGET_STORE
  payrollctl -client ID -password PW list`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func upload(ctx context.Context, client pb.PayrollFlightClient, clientID, password, path string) {
	f, err := os.Open(path)
	if err != nil {
		fatal("open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		fatal("read header: %v", err)
	}

	stream, err := client.Put(ctx)
	if err != nil {
		fatal("open put stream: %v", err)
	}
	if err := stream.Send(&pb.PutFrame{
		Descriptor: &pb.PutDescriptor{
			ClientID: clientID,
			Password: password,
			Filename: filepath.Base(path),
		},
		Header: header,
	}); err != nil {
		fatal("send descriptor: %v", err)
	}

	const chunkRows = 2048
	rows := make([][]string, 0, chunkRows)
	flush := func() {
		if len(rows) == 0 {
			return
		}
		if err := stream.Send(&pb.PutFrame{Rows: rows}); err != nil {
			fatal("send rows: %v", err)
		}
		rows = rows[:0]
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal("read csv: %v", err)
		}
		rows = append(rows, rec)
		if len(rows) == chunkRows {
			flush()
		}
	}
	flush()

	result, err := stream.CloseAndRecv()
	if err != nil {
		fatal("upload failed: %v", err)
	}
	fmt.Printf("ingested %d rows into %s\n", result.Rows, result.Store)
}

func fetch(ctx context.Context, client pb.PayrollFlightClient, clientID, password, action, target string) {
	stream, err := client.Get(ctx, &pb.Ticket{
		Action:     action,
		ClientID:   clientID,
		Password:   password,
		TargetFile: target,
	})
	if err != nil {
		fatal("get: %v", err)
	}

	w := csv.NewWriter(os.Stdout)
	total := 0
	for {
		batch, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal("fetch failed: %v", err)
		}
		if len(batch.Columns) > 0 {
			if err := w.Write(batch.Columns); err != nil {
				fatal("write: %v", err)
			}
		}
		if err := w.WriteAll(batch.Rows); err != nil {
			fatal("write: %v", err)
		}
		total += len(batch.Rows)
	}
	w.Flush()
	fmt.Fprintf(os.Stderr, "received %d rows\n", total)
}

func list(ctx context.Context, client pb.PayrollFlightClient, clientID, password string) {
	res, err := client.Do(ctx, &pb.ActionRequest{
		Name:     "list_files",
		ClientID: clientID,
		Password: password,
	})
	if err != nil {
		fatal("list failed: %v", err)
	}
	fmt.Println("Raw:")
	for _, f := range res.RawFiles {
		fmt.Println("  " + f)
	}
	fmt.Println("Clean:")
	for _, f := range res.CleanFiles {
		fmt.Println("  " + f)
	}
}
