// Command zkfixture runs the in-memory test server standalone, for
// manually exercising zkcli or a client written against pkg/zk without a
// real deployment. Grounded on the teacher's cmd/server, which did the
// same for its gRPC/net-rpc server.
package main

import (
	"flag"
	"log"
	"net"

	"github.com/mikekulinski/zkconn/internal/zktest"
)

func main() {
	addr := flag.String("addr", ":2181", "address to listen on")
	flag.Parse()

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("zkfixture: listen: %v", err)
	}
	log.Printf("zkfixture: listening on %s", *addr)

	srv := zktest.NewServer(log.Default())
	if err := srv.Serve(l); err != nil {
		log.Fatalf("zkfixture: serve: %v", err)
	}
}
