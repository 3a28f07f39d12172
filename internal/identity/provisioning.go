package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

// ProvisionRequest is the one-shot registration payload a deployment
// tool sends before the bridge's first run, so the document store
// already has a device entry by the time the bridge connects.
type ProvisionRequest struct {
	ProvisioningCode string                 `json:"provisioning_code"`
	HardwareSerial   string                 `json:"hardware_serial"`
	HardwareInfo     map[string]interface{} `json:"hardware_info"`
	NetworkInfo      map[string]interface{} `json:"network_info"`
}

// ProvisionResponse is what the registration endpoint returns.
type ProvisionResponse struct {
	DeviceID    string `json:"device_id"`
	BrokerURL   string `json:"broker_url"`
	DeviceToken string `json:"device_token"`
}

// Provisioner performs one-shot device registration against a
// deployment's provisioning endpoint. It is not invoked by the bridge
// core at runtime (spec.md §1 places bootstrap/registration out of
// scope); it exists so a separate bootstrap step has a documented
// contract to satisfy before the bridge starts.
type Provisioner struct {
	provisioningCode string
	registerURL      string
	credentialsPath  string
	sealer           *CredentialSealer
	logger           *zap.Logger
}

func NewProvisioner(provisioningCode, registerURL string, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		provisioningCode: provisioningCode,
		registerURL:      registerURL,
		logger:           logger,
	}
}

// WithCredentialPersistence configures Provision to seal the returned
// device token under passphrase and write it to path, rather than
// leaving it for the caller to persist in plaintext. Optional: a
// Provisioner with no persistence configured just returns the response.
func (p *Provisioner) WithCredentialPersistence(passphrase, path string) *Provisioner {
	p.sealer = NewCredentialSealer(passphrase)
	p.credentialsPath = path
	return p
}

// Provision gathers hardware and network facts and registers the
// device, returning the broker URL and credentials the bridge's
// configuration should then be seeded with.
func (p *Provisioner) Provision(serial string) (*ProvisionResponse, error) {
	if p.provisioningCode == "" {
		return nil, bridgeerr.DocumentSchema("provisioning_code is required")
	}

	p.logger.Info("starting device provisioning", zap.String("server", p.registerURL))

	req := &ProvisionRequest{
		ProvisioningCode: p.provisioningCode,
		HardwareSerial:   serial,
		HardwareInfo:     gatherHardwareInfo(),
		NetworkInfo:      gatherNetworkInfo(),
	}

	resp, err := postJSON(p.registerURL, req)
	if err != nil {
		return nil, bridgeerr.TransientRPC("provisioning request failed", err)
	}
	defer resp.Body.Close()

	var provResp ProvisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&provResp); err != nil {
		return nil, bridgeerr.DocumentSchema("malformed provisioning response: " + err.Error())
	}

	p.logger.Info("device provisioned successfully", zap.String("device_id", provResp.DeviceID))

	if p.sealer != nil {
		if err := PersistCredentials(p.sealer, &provResp, p.credentialsPath); err != nil {
			return nil, err
		}
		p.logger.Info("sealed device credentials persisted", zap.String("path", p.credentialsPath))
	}

	return &provResp, nil
}

// gatherHardwareInfo collects board identity for the registration
// payload: OS/arch, Raspberry Pi board model when available, core
// count, and, as ram_mb, the memory the Go runtime has obtained from
// the OS (runtime.MemStats.Sys).
func gatherHardwareInfo() map[string]interface{} {
	info := make(map[string]interface{})

	info["os"] = runtime.GOOS
	info["arch"] = runtime.GOARCH

	if boardModel, err := os.ReadFile("/proc/device-tree/model"); err == nil {
		info["board_model"] = strings.TrimRight(string(boardModel), "\x00\n")
	} else {
		info["board_model"] = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	}

	info["cpu_cores"] = runtime.NumCPU()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	info["ram_mb"] = m.Sys / 1024 / 1024

	return info
}

// gatherNetworkInfo collects hostname and the first non-loopback
// interface's MAC/IP so provisioning can record how the device reached
// the registration endpoint.
func gatherNetworkInfo() map[string]interface{} {
	info := make(map[string]interface{})

	if hostname, err := os.Hostname(); err == nil {
		info["hostname"] = hostname
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
				continue
			}

			addrs, err := iface.Addrs()
			if err != nil || len(addrs) == 0 {
				continue
			}

			info["mac_address"] = iface.HardwareAddr.String()
			info["interface_name"] = iface.Name

			for _, addr := range addrs {
				if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
					if ipnet.IP.To4() != nil {
						info["ip_address"] = ipnet.IP.String()
						break
					}
				}
			}

			if _, ok := info["ip_address"]; ok {
				break
			}
		}
	}

	if strings.Contains(fmt.Sprint(info["interface_name"]), "wl") {
		info["connection_type"] = "wifi"
	} else {
		info["connection_type"] = "ethernet"
	}

	return info
}

// postJSON sends a POST request with a JSON body and a 30s timeout.
func postJSON(url string, body interface{}) (*http.Response, error) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("provisioning failed: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}
