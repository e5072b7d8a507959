package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Ailikez/rt-soldering-pen/host/config"
	"github.com/Ailikez/rt-soldering-pen/host/mcu"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
	configPath = flag.String("config", "", "if set, load preset defaults from this JSON file and replay them to the MCU at startup")
)

func main() {
	flag.Parse()

	fmt.Println("rt-soldering-pen host - interactive controller")
	fmt.Println("================================================")

	mcuConn := mcu.NewMCU()
	mcuConn.SetStatusHandler(printStatus)

	fmt.Printf("Connecting to MCU on %s...\n", *device)
	if err := mcuConn.Connect(*device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Connected and dictionary loaded.")

	if *configPath != "" {
		if err := applyStartupConfig(mcuConn, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to apply config %s: %v\n", *configPath, err)
			os.Exit(1)
		}
	}

	fmt.Println("Type 'help' for available commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "select":
			runIntArg(args, "select <preset>", func(n int) error { return mcuConn.SelectPreset(n) })

		case "edit_select":
			runIntArg(args, "edit_select <preset>", func(n int) error { return mcuConn.EditPresetSelect(n) })

		case "edit_add":
			runIntArg(args, "edit_add <delta_mC>", func(n int) error { return mcuConn.EditPresetAdd(n) })

		case "edit_end":
			if err := mcuConn.EditPresetEnd(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "status":
			if err := mcuConn.QueryHeatingStatus(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "save":
			if len(args) != 1 {
				fmt.Println("usage: save <file.yaml>")
				break
			}
			pf := &presetFile{Temperatures: []int{lastKnownPresetTemperature}}
			if err := savePresetFile(args[0], pf); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "load":
			if len(args) != 1 {
				fmt.Println("usage: load <file.yaml>")
				break
			}
			pf, err := loadPresetFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				break
			}
			if err := applyPresetFile(mcuConn, pf); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func runIntArg(args []string, usage string, fn func(int) error) {
	if len(args) != 1 {
		fmt.Printf("usage: %s\n", usage)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("usage: %s\n", usage)
		return
	}
	if err := fn(n); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// applyStartupConfig loads a JSON config and replays its preset defaults
// to the MCU, the same way the "load" command replays a YAML file. The
// config's PID/resistance-threshold fields are MCU-resident values with
// no wire command to set remotely, so only preset defaults apply here;
// pen-sim, which runs the engine in-process, is where those fields take
// effect.
func applyStartupConfig(conn *mcu.MCU, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if len(cfg.PresetDefaultsMC) == 0 {
		return nil
	}
	return applyPresetFile(conn, &presetFile{Temperatures: cfg.PresetDefaultsMC})
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  select <preset>        - Select a preset (clears standby)")
	fmt.Println("  edit_select <preset>   - Begin editing a preset's temperature")
	fmt.Println("  edit_add <delta_mC>    - Nudge the preset under edit")
	fmt.Println("  edit_end               - Commit the preset under edit")
	fmt.Println("  status                 - Query current heating status")
	fmt.Println("  save <file.yaml>       - Save the last-known preset target to a YAML file")
	fmt.Println("  load <file.yaml>       - Replay preset targets from a YAML file to the MCU")
	fmt.Println("  quit/exit/q            - Exit the program")
	fmt.Println()
}

func printStatus(s mcu.Status) {
	lastKnownPresetTemperature = int(s.PresetTemperature)

	fmt.Printf("\n[status] state=%d requested=%dmW actual=%dmW energy=%dmWh steady=%dms\n",
		s.State, s.RequestedPowerMW, s.PowerMW, s.EnergyMWh, s.SteadyMS)
	fmt.Printf("         pen_R=%dmOhm heater_status=%d sensor_status=%d\n",
		s.PenResistanceMO, s.HeatingElementStatus, s.PenSensorStatus)
	fmt.Printf("         temp(real)=%dmC preset=%d target=%dmC standby=%d\n",
		s.RealPenTemperatureMC, s.SelectedPreset, s.PresetTemperature, s.IsStandby)
	if *verbose {
		fmt.Printf("         cpu_v heat/idle=%d/%dmV supply_v heat/idle/drop=%d/%d/%dmV pen_i heat/idle=%d/%dmA\n",
			s.CPUVoltageMVHeat, s.CPUVoltageMVIdle,
			s.SupplyVoltageMVHeat, s.SupplyVoltageMVIdle, s.SupplyVoltageMVDrop,
			s.PenCurrentMAHeat, s.PenCurrentMAIdle)
	}
}
