package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tklauser/go-sysconf"

	emuera "github.com/IceThunder/emuera-mac-sub001"
)

type statistics struct {
	elapsed time.Time
	utime   int64
	stime   int64
	lines   int64
}

var s statistics

//
// Initialize the clock before a run. lines is the executed statement
// count at that point
//

func initClock(lines int64) {

	s.elapsed = time.Now()
	s.utime, s.stime, _ = getCPUInfo(1)
	s.lines = lines
}

func printCpuUsage() {

	elapsed := time.Since(s.elapsed)
	utime, stime, err := getCPUInfo(1)
	if err != nil {
		fmt.Printf("CPU Usage: elapsed = %s (%s)\n", formatCPUTime(int64(elapsed.Seconds())), err)
		return
	}

	fmt.Printf("CPU Usage: elapsed = %s / user = %s / system = %s\n",
		formatCPUTime(int64(elapsed.Seconds())),
		formatCPUTime(utime-s.utime), formatCPUTime(stime-s.stime))
}

// formatCPUTime renders whole seconds as hh:mm:ss.
func formatCPUTime(secs int64) string {

	d := time.Duration(secs) * time.Second
	return fmt.Sprintf("%02d:%02d:%02d", int64(d.Hours()), int64(d.Minutes())%60, secs%60)
}

//
// User and system CPU seconds of this process, from fields 14 and 15
// of /proc/self/stat
//

func getCPUInfo(divisor int64) (int64, int64, error) {

	clktck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil {
		return 0, 0, err
	}
	clktck /= divisor

	contents, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(string(contents))
	if len(fields) < 15 {
		return 0, 0, fmt.Errorf("short /proc/self/stat")
	}

	utime, err := strconv.ParseInt(fields[13], 10, 64)
	if err != nil {
		return 0, 0, err
	}

	stime, err := strconv.ParseInt(fields[14], 10, 64)
	if err != nil {
		return 0, 0, err
	}

	return utime / clktck, stime / clktck, nil
}

func convertToMB(num uint64) uint64 {
	return num / (1024 * 1024)
}

func printStatistics(lines int64) {

	var mem runtime.MemStats

	if !g.printStats {
		return
	}

	n := lines - s.lines

	fmt.Println()
	printCpuUsage()
	runtime.GC()
	runtime.ReadMemStats(&mem)
	fmt.Printf("%dMB memory used\n", convertToMB(mem.HeapAlloc))
	fmt.Printf("%d %s executed\n", n, emuera.Pluralize("statement", n))
}
