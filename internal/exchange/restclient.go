package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tradecore/pkg/ratelimit"
	"tradecore/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Категории rate limit: отправка ордеров лимитируется жёстче запросов
const (
	limitOrder = "order"
	limitQuery = "query"
)

// RESTClientConfig - настройки REST клиента биржи
type RESTClientConfig struct {
	Name      string // имя биржи для логов и ошибок
	BaseURL   string
	APIKey    string
	APISecret string

	// Запросов в секунду по категориям
	OrderRateLimit float64
	QueryRateLimit float64

	HTTP HTTPClientConfig
}

// RESTClient - подписанный REST доступ к биржевому API.
//
// Каждый приватный запрос подписывается HMAC-SHA256 от строки запроса
// с таймстампом. Отправка ордеров и запросы состояния лимитируются
// раздельно: исчерпание квоты запросов не блокирует ордера.
type RESTClient struct {
	cfg      RESTClientConfig
	http     *http.Client
	limiters *ratelimit.MultiLimiter
	log      *utils.Logger
}

// NewRESTClient создаёт клиент биржевого REST API
func NewRESTClient(cfg RESTClientConfig, log *utils.Logger) *RESTClient {
	if cfg.Name == "" {
		cfg.Name = "exchange"
	}
	if cfg.OrderRateLimit <= 0 {
		cfg.OrderRateLimit = 10
	}
	if cfg.QueryRateLimit <= 0 {
		cfg.QueryRateLimit = 20
	}
	if cfg.HTTP.TotalTimeout == 0 {
		cfg.HTTP = DefaultHTTPClientConfig()
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}

	limiters := ratelimit.NewMultiLimiter()
	limiters.Add(limitOrder, cfg.OrderRateLimit, cfg.OrderRateLimit*2)
	limiters.Add(limitQuery, cfg.QueryRateLimit, cfg.QueryRateLimit*2)

	return &RESTClient{
		cfg:      cfg,
		http:     newPooledHTTPClient(cfg.HTTP),
		limiters: limiters,
		log:      log.WithComponent("rest_client"),
	}
}

// GetName возвращает имя биржи
func (c *RESTClient) GetName() string {
	return c.cfg.Name
}

// Close закрывает idle соединения пула
func (c *RESTClient) Close() error {
	if transport, ok := c.http.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

// sign возвращает HMAC-SHA256 подпись строки запроса
func (c *RESTClient) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedRequest выполняет подписанный запрос и декодирует ответ в out
func (c *RESTClient) signedRequest(ctx context.Context, category, method, path string, params url.Values, out interface{}) error {
	if err := c.limiters.Wait(ctx, category); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	var body io.Reader
	reqURL := c.cfg.BaseURL + path
	if method == http.MethodGet || method == http.MethodDelete {
		reqURL += "?" + query
	} else {
		body = strings.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ExchangeError{Exchange: c.cfg.Name, Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ExchangeError{Exchange: c.cfg.Name, Message: "read body failed", Original: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"msg"`
		}
		// Тело ошибки может быть не JSON - тогда отдаём статус как есть
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &ExchangeError{Exchange: c.cfg.Name, Code: apiErr.Code, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExchangeError{Exchange: c.cfg.Name, Message: "decode failed", Original: err}
	}
	return nil
}

// ============================================================
// QueryClient
// ============================================================

// GetBalances получает балансы спотового аккаунта
func (c *RESTClient) GetBalances(ctx context.Context) ([]Balance, error) {
	var resp struct {
		Balances []Balance `json:"balances"`
	}
	if err := c.signedRequest(ctx, limitQuery, http.MethodGet, "/api/v1/account/balances", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

// GetPositions получает открытые фьючерсные позиции
func (c *RESTClient) GetPositions(ctx context.Context) ([]Position, error) {
	var resp struct {
		Positions []Position `json:"positions"`
	}
	if err := c.signedRequest(ctx, limitQuery, http.MethodGet, "/api/v1/account/positions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// GetOpenOrders получает активные ордера по всем символам
func (c *RESTClient) GetOpenOrders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.signedRequest(ctx, limitQuery, http.MethodGet, "/api/v1/orders/open", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ============================================================
// ExecutionClient
// ============================================================

// SubmitOrder размещает ордер
func (c *RESTClient) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.Price > 0 {
		params.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	}
	if req.ClientOrderID != "" {
		params.Set("client_order_id", req.ClientOrderID)
	}

	var order Order
	if err := c.signedRequest(ctx, limitOrder, http.MethodPost, "/api/v1/orders", params, &order); err != nil {
		return nil, err
	}

	c.log.Info("order submitted",
		utils.OrderID(order.ID),
		utils.Symbol(req.Symbol),
		utils.Side(req.Side),
		utils.Quantity(req.Quantity),
		utils.Price(req.Price))

	return &order, nil
}

// CancelOrder снимает ордер с биржи
func (c *RESTClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("order_id", orderID)
	return c.signedRequest(ctx, limitOrder, http.MethodDelete, "/api/v1/orders", params, nil)
}
