/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Apr 13 09:18:26 2018 mstenber
 * Last modified: Sat Apr 14 13:00:57 2018 mstenber
 * Edit time:     52 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/fingon/go-vfscore/config"
	"github.com/fingon/go-vfscore/fs/boltfs"
	"github.com/fingon/go-vfscore/mlog"
	"github.com/fingon/go-vfscore/vfs"
	"github.com/fingon/go-vfscore/vfsfuse"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/spf13/pflag"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [--config FILE] [MOUNTDIR]\n%s --mkfs IMAGE\n\n", os.Args[0], os.Args[0])
		pflag.PrintDefaults()
	}
	configPath := pflag.String("config", os.Getenv("VFSCORE_CONFIG"), "Configuration file (YAML)")
	mkfs := pflag.String("mkfs", "", "Format the given boltfs image and exit")
	cpuprofile := pflag.String("cpuprofile", "", "CPU profile file")
	memprofile := pflag.String("memprofile", "", "Memory profile file")

	// -mlog lives in the standard flag set
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if *mkfs != "" {
		if err = boltfs.Format(*mkfs, cfg.FormatOptions()); err != nil {
			log.Fatal(err)
		}
		return
	}

	mountpoint := cfg.Fuse.Mountpoint
	if pflag.NArg() > 0 {
		mountpoint = pflag.Arg(0)
	}
	if mountpoint == "" {
		pflag.Usage()
		os.Exit(1)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err = cfg.Boot(); err != nil {
		log.Fatal(err)
	}

	opts := &fuse.MountOptions{Name: "vfscore"}
	if mlog.IsEnabled() || cfg.Fuse.Debug {
		opts.Debug = true
	}
	fuseServer, err := fuse.NewServer(vfsfuse.NewOps(), mountpoint, opts)
	if err != nil {
		log.Panic(err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		if err := fuseServer.Unmount(); err != nil {
			mlog.Warnf("unmount failed: %v", err)
		}
	}()

	// loop is here
	fuseServer.Serve()

	// then unmount things in order (could use defer, but rather
	// get things cleared before we get out for memory profiling)
	vfs.Shutdown()

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
