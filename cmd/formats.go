package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openvcam/vcamd/internal/config"
	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/logging"
)

// CreateFormatsCmd creates the formats command. It builds the catalog the
// daemon would advertise and prints it without starting anything.
func CreateFormatsCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "Print the negotiated format catalog",
		Long: `Builds the format catalog from the device definition file and prints ` +
			`each entry with its exact rational frame durations. Useful to verify a ` +
			`device file before running the daemon.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("formats")

			manager := config.NewDeviceManager(configFile)
			if err := manager.Load(); err != nil {
				logger.Error("Failed to load device config", "error", err, "path", configFile)
				os.Exit(1)
			}
			device := manager.Device()

			catalog, err := format.NewCatalog(
				format.PixelFormat(device.PixelFormat),
				device.FormatModes(),
				logger,
			)
			if err != nil {
				logger.Error("Failed to build catalog", "error", err)
				os.Exit(1)
			}

			defaultIndex := catalog.DefaultIndex(device.PreferredWidth, device.PreferredHeight)
			fmt.Printf("Device: %s (%s)\n", device.Name, device.PixelFormat)
			for i, d := range catalog.Descriptors() {
				marker := " "
				if i == defaultIndex {
					marker = "*"
				}
				rates := make([]string, len(d.Durations))
				for j, dur := range d.Durations {
					rates[j] = fmt.Sprintf("%d/%d (%.3f fps)", dur.Numerator, dur.Denominator, dur.FPS())
				}
				size, _ := d.FrameSize()
				fmt.Printf("%s [%d] %dx%d  %d bytes/frame  %s\n",
					marker, i, d.Width, d.Height, size, strings.Join(rates, ", "))
			}
		},
	}

	cmd.Flags().StringVarP(&configFile, "device-config", "d", "device.toml", "Device definition file")
	return cmd
}
