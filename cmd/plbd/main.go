// Command plbd is the Proxmox VE placement engine daemon: it fetches a
// cluster snapshot, computes a migration plan, and optionally executes it
// on a schedule.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/formorer/ProxLB/internal/domain"
)

func main() {
	err := Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)

	var plbErr *domain.PLBError
	if errors.As(err, &plbErr) && plbErr.Fatal() {
		os.Exit(2)
	}
	os.Exit(1)
}
