package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rangepull/rangepull/cmd/progressview"
	"github.com/rangepull/rangepull/internal/engine/controller"
	"github.com/rangepull/rangepull/internal/engine/types"
	"github.com/rangepull/rangepull/internal/utils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const defaultChunkSizeBytes = 4 * types.MB

var getCmd = &cobra.Command{
	Use:   "get [url...]",
	Short: "Download one or more URLs with resumable, multi-connection range requests",
	Long: `Download a file (or several, one Task Controller per URL) from a
remote server. Re-running get against the same output directory resumes
from the on-disk checkpoint instead of starting over.

Use --batch to read URLs from a file (one per line) instead of arguments.`,
	Args: cobra.ArbitraryArgs,
	Run:  runGet,
}

func init() {
	getCmd.Flags().StringP("output", "o", ".", "destination directory")
	getCmd.Flags().IntP("workers", "n", 8, "concurrent range workers per download")
	getCmd.Flags().Int64("chunk-size", defaultChunkSizeBytes, "target chunk size in bytes")
	getCmd.Flags().StringP("batch", "b", "", "file containing URLs to download (one per line)")
	getCmd.Flags().Bool("headless", false, "print progress lines instead of the interactive TUI")
	getCmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	outDir, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")
	chunkSize, _ := cmd.Flags().GetInt64("chunk-size")
	batchFile, _ := cmd.Flags().GetString("batch")
	headless, _ := cmd.Flags().GetBool("headless")
	insecure, _ := cmd.Flags().GetBool("insecure")
	verbose, _ := cmd.Flags().GetBool("verbose")

	urls := args
	if batchFile != "" {
		fromFile, err := readURLsFromFile(batchFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "Error: requires at least one URL argument or --batch")
		os.Exit(1)
	}

	runtime := &types.RuntimeConfig{}
	if verbose {
		utils.Debug("get: starting %d download(s) to %s", len(urls), outDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping...")
		cancel()
	}()

	controllers := make([]*controller.Controller, len(urls))
	for i, u := range urls {
		task := types.DownloadTask{
			URL:                u,
			DownloadDir:        outDir,
			ChunkSizeBytes:     chunkSize,
			WorkerCount:        workers,
			ProxyMode:          types.ProxyModeSystem,
			InsecureSkipVerify: insecure,
		}
		controllers[i] = controller.New(task, runtime)
	}

	var failed bool
	if headless {
		failed = runHeadless(ctx, controllers, urls)
	} else {
		failed = runInteractive(ctx, controllers, urls)
	}

	signal.Stop(sigCh)
	if failed {
		os.Exit(1)
	}
}

// readURLsFromFile reads one URL per line, skipping blank lines and
// "#"-prefixed comments.
func readURLsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs found in %s", path)
	}
	return urls, nil
}

// runInteractive drives one bubbletea progress bar per URL, sequentially,
// so the terminal never has to multiplex more than one live view. It
// returns true if any download failed.
func runInteractive(ctx context.Context, controllers []*controller.Controller, urls []string) bool {
	var anyFailed bool
	for i, c := range controllers {
		if len(urls) > 1 {
			fmt.Printf("\n[%d/%d] %s (task %s)\n", i+1, len(urls), urls[i], c.TaskID)
		}
		c.Start(ctx)
		program := tea.NewProgram(progressview.New(c))
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if c.State() == types.StateFailed {
			fmt.Fprintf(os.Stderr, "Error: %v\n", c.LastError())
			anyFailed = true
		}
		if ctx.Err() != nil {
			break
		}
	}
	return anyFailed
}

// runHeadless starts every controller concurrently and prints periodic
// progress lines to stderr instead of rendering a TUI, for use in
// scripts and CI. It returns true if any download failed.
func runHeadless(ctx context.Context, controllers []*controller.Controller, urls []string) bool {
	var wg sync.WaitGroup
	failures := make([]bool, len(controllers))

	for i, c := range controllers {
		wg.Add(1)
		go func(i int, c *controller.Controller) {
			defer wg.Done()
			headlessWatch(ctx, c, urls[i])
			failures[i] = c.State() == types.StateFailed
			if failures[i] {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", urls[i], c.LastError())
			}
		}(i, c)
		c.Start(ctx)
	}

	wg.Wait()
	for _, f := range failures {
		if f {
			return true
		}
	}
	return false
}

// headlessWatch polls one controller's progress_snapshot until it
// reaches Completed or Failed (or ctx is cancelled), printing a line
// each time progress enters a new 10% step.
func headlessWatch(ctx context.Context, c *controller.Controller, url string) {
	start := time.Now()
	lastDecile := int64(-1)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			state := c.State()
			snap := c.ProgressSnapshot()
			if snap.TotalBytes > 0 {
				decile := snap.DownloadedBytes * 10 / snap.TotalBytes
				if decile > lastDecile {
					lastDecile = decile
					speed := float64(snap.DownloadedBytes) / time.Since(start).Seconds()
					fmt.Fprintf(os.Stderr, "%s: %d%% (%s) - %s/s\n", url, decile*10,
						utils.ConvertBytesToHumanReadable(snap.DownloadedBytes),
						utils.ConvertBytesToHumanReadable(int64(speed)))
				}
			}
			if state == types.StateCompleted || state == types.StateFailed {
				if state == types.StateCompleted {
					fmt.Fprintf(os.Stderr, "%s: complete (%s) in %s\n", url,
						utils.ConvertBytesToHumanReadable(snap.TotalBytes),
						time.Since(start).Round(time.Millisecond))
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
