// This file is part of armvm.
//
// armvm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armvm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armvm.  If not, see <https://www.gnu.org/licenses/>.

// Command armdump is a small terminal tool over this module's decoder and
// emulator: it disassembles a range of a flat binary, or runs a thread
// seeded at an entry point until it returns, printing each taken branch.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dyldarm/armvm/arm"
	"github.com/dyldarm/armvm/armmem"
	"github.com/dyldarm/armvm/logger"
)

var log = logger.NewLogger(256)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "armdump",
		Short: "disassemble and run flat ARM/Thumb binaries",
	}
	root.AddCommand(disasCmd(), runCmd())
	return root
}

// parseAddr accepts decimal or 0x-prefixed hex.
func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func loadROM(path string, base uint32) (*armmem.SimulatedROM, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("armdump: %w", err)
	}
	return armmem.NewSimulatedROM(content, base), nil
}

func disasCmd() *cobra.Command {
	var base uint32
	var baseStr string
	var count int

	cmd := &cobra.Command{
		Use:   "disas <file> <vmaddr>",
		Short: "disassemble count instructions starting at vmaddr",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := parseAddr(baseStr)
			if err != nil {
				return fmt.Errorf("armdump: bad --base: %w", err)
			}
			base = b
			addr, err := parseAddr(args[1])
			if err != nil {
				return fmt.Errorf("armdump: bad vmaddr: %w", err)
			}

			rom, err := loadROM(args[0], base)
			if err != nil {
				return err
			}
			th := arm.NewThread(rom)
			th.Goto(addr)

			bold := color.New(color.Bold)
			dim := color.New(color.FgHiBlack)
			for i := 0; i < count && !th.Halted(); i++ {
				loc, _ := th.PCRaw().AsInt()
				encoding, length, instrSet, err := th.Fetch()
				if err != nil {
					return fmt.Errorf("armdump: fetch at %#x: %w", loc, err)
				}
				instr, err := arm.Dispatch(encoding, length, instrSet, arm.CondNone)
				if err != nil {
					return fmt.Errorf("armdump: decode at %#x: %w", loc, err)
				}
				dim.Printf("%08x  ", loc)
				bold.Println(instr.String())
				th.Goto(loc + uint32(length))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseStr, "base", "0", "address the file is mapped at")
	cmd.Flags().IntVar(&count, "count", 16, "number of instructions to disassemble")
	return cmd
}

func runCmd() *cobra.Command {
	var baseStr string

	cmd := &cobra.Command{
		Use:   "run <file> <vmaddr> <entry>",
		Short: "run a thread from entry until it returns",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseAddr(baseStr)
			if err != nil {
				return fmt.Errorf("armdump: bad --base: %w", err)
			}
			entry, err := parseAddr(args[2])
			if err != nil {
				return fmt.Errorf("armdump: bad entry: %w", err)
			}

			rom, err := loadROM(args[0], base)
			if err != nil {
				return err
			}
			th := arm.NewThread(rom)
			th.Goto(entry)

			branch := color.New(color.FgCyan)
			th.OnBranch = func(prevPC uint32, instr *arm.Instruction, t *arm.Thread) {
				log.Logf(logger.Allow, "armdump", "%#x: %s -> %v", prevPC, instr, t.PCRaw())
				branch.Printf("%08x  %s  -> %v\n", prevPC, instr, t.PCRaw())
			}

			if err := th.Run(context.Background()); err != nil {
				return fmt.Errorf("armdump: %w", err)
			}

			fmt.Println("halted:")
			for i := 0; i < 13; i++ {
				fmt.Printf("  r%-2d = %v\n", i, th.Reg(i))
			}
			fmt.Printf("  sp  = %v\n", th.SP())
			fmt.Printf("  lr  = %v\n", th.LR())
			return nil
		},
	}
	cmd.Flags().StringVar(&baseStr, "base", "0", "address the file is mapped at")
	return cmd
}
