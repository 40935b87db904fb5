// This is a http type of reporter.
// It fetches data from the wallet service and the federation ledger
// and publishes it on the http routes.

package reporter

import (
	"net/http"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/tokenbridge/federator/agreement"
)

const (
	ROUTE_HELLO     = "/hello"
	ROUTE_STATUS    = "/status"
	ROUTE_TRANSFERS = "/transfers"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	wallet agreement.WalletService
	ledger agreement.FederationLedger

	member       ethcommon.Address
	historyDepth int
}

func NewHttpReporter(serverIP string, serverPort string, wallet agreement.WalletService, ledger agreement.FederationLedger, member ethcommon.Address) *HttpReporter {
	return &HttpReporter{
		serverIP:     serverIP,
		serverPort:   serverPort,
		wallet:       wallet,
		ledger:       ledger,
		member:       member,
		historyDepth: 50,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_STATUS, h.Status)
	router.GET(ROUTE_TRANSFERS, h.Transfers)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Report this federator's identity and the readiness of both wallets.
func (h *HttpReporter) Status(c *gin.Context) {
	singleReady, err := h.wallet.EnsureReady(agreement.WalletSingle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	multisigReady, err := h.wallet.EnsureReady(agreement.WalletMultisig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	index, err := h.ledger.GetMemberIndex(h.member)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":         h.member.Hex(),
		"member_index":   index,
		"wallet_ready":   singleReady,
		"multisig_ready": multisigReady,
	})
}

// Fetch recent sidechain transactions from the wallet history
// and publish them on the route.
func (h *HttpReporter) Transfers(c *gin.Context) {
	txs, err := h.wallet.GetHistory(h.historyDepth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(txs) > 0 {
		c.JSON(http.StatusOK, gin.H{"data": txs})
	} else {
		c.JSON(http.StatusNotFound, gin.H{"error": "No transfers found"})
	}
}
