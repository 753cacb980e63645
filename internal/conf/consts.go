package conf

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Image upload providers. An empty provider disables uploads.
const (
	ImageProviderNone  = ""
	ImageProviderImgBB = "imgbb"
	ImageProviderS3    = "s3"
	ImageProviderLocal = "local"
)

const minSessionSecretLength = 16

var (
	supportedDrivers        = []string{DriverSQLite, DriverMySQL}
	supportedImageProviders = []string{ImageProviderImgBB, ImageProviderS3, ImageProviderLocal}
)
