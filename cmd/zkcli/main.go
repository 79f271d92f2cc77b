// Command zkcli is a minimal interactive driver for pkg/zk, grounded on
// the teacher's cmd/client: connect, run a handful of operations against
// the server named on the command line, print what came back.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/mikekulinski/zkconn/pkg/zk"
)

func main() {
	servers := flag.String("servers", "localhost:2181", "comma-separated host:port list, optionally with a /chroot suffix")
	flag.Parse()

	c, err := zk.New(*servers,
		zk.WithSessionTimeout(6*time.Second),
		zk.WithDefaultWatcher(func(e zk.Event) {
			log.Printf("zkcli: event %s state=%s path=%s", e.Type, e.State, e.Path)
		}),
	)
	if err != nil {
		log.Fatalf("zkcli: connecting: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path, err := c.Create(ctx, "/zkcli-demo", []byte("hello"), zk.OpenACLUnsafe, zk.Persistent)
	if err != nil {
		log.Fatalf("zkcli: create: %v", err)
	}
	log.Printf("zkcli: created %s", path)

	data, stat, err := c.GetData(ctx, path, nil)
	if err != nil {
		log.Fatalf("zkcli: get data: %v", err)
	}
	log.Printf("zkcli: data=%q version=%d", data, stat.Version)

	if err := c.Delete(ctx, path, stat.Version); err != nil {
		log.Fatalf("zkcli: delete: %v", err)
	}
	log.Printf("zkcli: deleted %s", path)
}
