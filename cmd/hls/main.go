package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func main() {
	bin, err := exec.LookPath("hlsched")
	if err != nil {
		fmt.Fprintln(os.Stderr, "hls: hlsched not found on PATH")
		os.Exit(1)
	}
	if err := syscall.Exec(bin, append([]string{"hlsched"}, os.Args[1:]...), os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "hls: %v\n", err)
		os.Exit(1)
	}
}
