//go:build linux && amd64

package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/urfave/cli"
	"golang.org/x/net/bpf"

	"github.com/zhangyunhao116/jailkit"
	"github.com/zhangyunhao116/jailkit/internal/kernel"
	"github.com/zhangyunhao116/jailkit/landlock"
	"github.com/zhangyunhao116/jailkit/seccomp"
)

var infoCommand = cli.Command{
	Name:  "info",
	Usage: "report kernel support for the sandbox primitives",
	Action: func(ctx *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

		v, err := kernel.Detect()
		if err != nil {
			fmt.Fprintf(w, "kernel:\tunknown (%v)\n", err)
		} else {
			fmt.Fprintf(w, "kernel:\t%s\n", v)
			for _, f := range []struct {
				name string
				min  kernel.Version
			}{
				{"seccomp filter", kernel.SeccompFilter},
				{"seccomp tsync", kernel.SeccompTSync},
				{"kill_process action", kernel.KillProcess},
				{"close_range", kernel.CloseRange},
				{"landlock", kernel.Landlock},
				{"landlock truncate", kernel.LandlockTruncate},
			} {
				fmt.Fprintf(w, "  %s:\t%s (needs %d.%d)\n", f.name, yesNo(v.AtLeast(f.min)), f.min.Major, f.min.Minor)
			}
		}

		fmt.Fprintf(w, "landlock:\t%s\n", landlock.Detect().Features)
		fmt.Fprintf(w, "no_new_privs:\t%s\n", yesNo(jailkit.HasNoNewPrivs()))
		if ok, err := kernel.HasSysAdmin(); err != nil {
			fmt.Fprintf(w, "CAP_SYS_ADMIN:\tunknown (%v)\n", err)
		} else {
			fmt.Fprintf(w, "CAP_SYS_ADMIN:\t%s\n", yesNo(ok))
		}
		return w.Flush()
	},
}

var categoriesCommand = cli.Command{
	Name:  "categories",
	Usage: "list the syscall categories accepted by --allow",
	Action: func(ctx *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSYSCALLS\tDESCRIPTION")
		for _, name := range seccomp.Categories() {
			desc, err := seccomp.Describe(name)
			if err != nil {
				return err
			}
			nrs, err := seccomp.Syscalls(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(nrs), desc)
		}
		return w.Flush()
	},
}

var bpfCommand = cli.Command{
	Name:  "bpf",
	Usage: "print the seccomp program a set of categories assembles to",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "allow",
			Usage: "allow the syscall `CATEGORY`",
		},
		cli.BoolFlag{
			Name:  "no-defaults",
			Usage: "omit the basic category",
		},
		cli.BoolFlag{
			Name:  "stricter",
			Usage: "print the fixed stricter-than-strict-mode program instead",
		},
	},
	Action: func(ctx *cli.Context) error {
		var raw []bpf.RawInstruction
		if ctx.Bool("stricter") {
			raw = seccomp.StricterDefault()
		} else {
			b := seccomp.New()
			if ctx.Bool("no-defaults") {
				b = seccomp.NewNoDefaults()
			}
			for _, name := range ctx.StringSlice("allow") {
				if err := b.Allow(name); err != nil {
					return err
				}
			}
			if err := b.Finish(seccomp.KillProcess); err != nil {
				return err
			}
			raw = b.Instructions()
		}
		return printProgram(raw)
	},
}

func printProgram(raw []bpf.RawInstruction) error {
	insts, _ := bpf.Disassemble(raw)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, inst := range insts {
		fmt.Fprintf(w, "%s\t%v\n", strconv.Itoa(i), inst)
	}
	// A sock_filter is 8 bytes.
	fmt.Fprintf(w, "\n%d instructions, %s\n", len(raw), units.BytesSize(float64(len(raw)*8)))
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
