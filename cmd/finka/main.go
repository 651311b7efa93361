// Command finka validates branch budget data and builds the BDR, DDS and
// FOT ledgers. Run "finka serve" for the HTTP API and "finka worker" for
// the AMQP consumer.
package main

import (
	"context"
	"os"

	"github.com/b1411/finka/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
