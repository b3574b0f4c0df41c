// Command rsync is the CLI entrypoint: client, "--server", and "--daemon"
// modes all go through maincmd.Main, which inspects the parsed flags to
// decide which role to play.
package main

import (
	"context"
	"log"
	"os"

	"github.com/blocksync/rsync/internal/maincmd"
	"github.com/blocksync/rsync/internal/rsyncos"
)

func main() {
	osenv := &rsyncos.Env{Std: rsyncos.System()}
	if _, err := maincmd.Main(context.Background(), osenv, os.Args, nil); err != nil {
		log.Fatal(err)
	}
}
