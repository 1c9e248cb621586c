package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Vinflow.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Vinflow.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnitCreate registers a new unit.
func (c *Client) UnitCreate(req UnitCreateRequest) (*UnitCreateResponse, error) {
	var resp UnitCreateResponse
	if err := c.client.Call("Vinflow.UnitCreate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnitList lists units, optionally filtered by stage.
func (c *Client) UnitList(req UnitListRequest) (*UnitListResponse, error) {
	var resp UnitListResponse
	if err := c.client.Call("Vinflow.UnitList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnitDescribe fetches a unit with its full ledger view.
func (c *Client) UnitDescribe(req UnitDescribeRequest) (*UnitDescribeResponse, error) {
	var resp UnitDescribeResponse
	if err := c.client.Call("Vinflow.UnitDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Move commits an explicit stage transition.
func (c *Client) Move(req MoveRequest) (*MoveResponse, error) {
	var resp MoveResponse
	if err := c.client.Call("Vinflow.Move", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Advance moves a unit to its next workflow stage.
func (c *Client) Advance(req AdvanceRequest) (*AdvanceResponse, error) {
	var resp AdvanceResponse
	if err := c.client.Call("Vinflow.Advance", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetPriority changes a unit's urgency flag.
func (c *Client) SetPriority(req SetPriorityRequest) (*SetPriorityResponse, error) {
	var resp SetPriorityResponse
	if err := c.client.Call("Vinflow.SetPriority", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddNote appends an audit note to a unit.
func (c *Client) AddNote(req AddNoteRequest) (*AddNoteResponse, error) {
	var resp AddNoteResponse
	if err := c.client.Call("Vinflow.AddNote", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HoldForParts moves a unit into the parts hold stage.
func (c *Client) HoldForParts(req HoldForPartsRequest) (*HoldForPartsResponse, error) {
	var resp HoldForPartsResponse
	if err := c.client.Call("Vinflow.HoldForParts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCost records a unit's actual repair cost.
func (c *Client) SetCost(req SetCostRequest) (*SetCostResponse, error) {
	var resp SetCostResponse
	if err := c.client.Call("Vinflow.SetCost", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches a unit's occupancy ledger.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Vinflow.History", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Alerts fetches the aging report.
func (c *Client) Alerts() (*AlertsResponse, error) {
	var resp AlertsResponse
	if err := c.client.Call("Vinflow.Alerts", AlertsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tier resolves the approval bracket for a repair cost.
func (c *Client) Tier(cost float64) (*TierResponse, error) {
	var resp TierResponse
	if err := c.client.Call("Vinflow.Tier", TierRequest{Cost: cost}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats fetches per-stage occupancy counts.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call("Vinflow.Stats", StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events fetches ledger change events after a sequence number.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.client.Call("Vinflow.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification sends a test message through the daemon's notifier.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Vinflow.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed ledger database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Vinflow.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
