package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req any, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop and exit.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopRequest, StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// JobList returns stored jobs optionally filtered by statuses.
func (c *Client) JobList(req JobListRequest) (*JobListResponse, error) {
	return call[JobListRequest, JobListResponse](c, "JobList", req)
}

// JobShow returns a job with its items. An empty id means the active job.
func (c *Client) JobShow(id string) (*JobShowResponse, error) {
	return call[JobShowRequest, JobShowResponse](c, "JobShow", JobShowRequest{ID: id})
}

// JobLoad loads a product list as the new active job.
func (c *Client) JobLoad(req JobLoadRequest) (*JobResponse, error) {
	return call[JobLoadRequest, JobResponse](c, "JobLoad", req)
}

// JobActivate continues a stored job.
func (c *Client) JobActivate(id string) (*JobResponse, error) {
	return call[JobActivateRequest, JobResponse](c, "JobActivate", JobActivateRequest{ID: id})
}

// JobCopy copies a stored job.
func (c *Client) JobCopy(id, name string) (*JobCopyResponse, error) {
	return call[JobCopyRequest, JobCopyResponse](c, "JobCopy", JobCopyRequest{ID: id, Name: name})
}

// JobDelete removes a stored job.
func (c *Client) JobDelete(id string) (*JobDeleteResponse, error) {
	return call[JobDeleteRequest, JobDeleteResponse](c, "JobDelete", JobDeleteRequest{ID: id})
}

// BoxLabels assigns a box label list to the active job.
func (c *Client) BoxLabels(path string) (*BoxLabelsResponse, error) {
	return call[BoxLabelsRequest, BoxLabelsResponse](c, "BoxLabels", BoxLabelsRequest{Path: path})
}

// Scan submits a code as if it came from the scanner.
func (c *Client) Scan(code string) (*ScanResponse, error) {
	return call[ScanRequest, ScanResponse](c, "Scan", ScanRequest{Code: code})
}

// Verify marks an item verified without a scan.
func (c *Client) Verify(displayID int) (*ScanResponse, error) {
	return call[VerifyRequest, ScanResponse](c, "Verify", VerifyRequest{DisplayID: displayID})
}

// Reset returns verified items to pending.
func (c *Client) Reset(ids []int, all bool) (*CountResponse, error) {
	return call[ResetRequest, CountResponse](c, "Reset", ResetRequest{IDs: ids, All: all})
}

// DeleteItems removes rows from the active job.
func (c *Client) DeleteItems(ids []int) (*CountResponse, error) {
	return call[DeleteItemsRequest, CountResponse](c, "DeleteItems", DeleteItemsRequest{IDs: ids})
}

// UpdateSettings changes matching options of the active job.
func (c *Client) UpdateSettings(req UpdateSettingsRequest) (*UpdateSettingsResponse, error) {
	return call[UpdateSettingsRequest, UpdateSettingsResponse](c, "UpdateSettings", req)
}

// ScanLog returns up to limit of the newest scan report lines.
func (c *Client) ScanLog(limit int) (*ScanLogResponse, error) {
	return call[ScanLogRequest, ScanLogResponse](c, "ScanLog", ScanLogRequest{Limit: limit})
}

// Export writes exports of the active job.
func (c *Client) Export(kind string) (*ExportResponse, error) {
	return call[ExportRequest, ExportResponse](c, "Export", ExportRequest{Kind: kind})
}

// Print prints an item label on a target printer.
func (c *Client) Print(displayID int, target string) (*PrintResponse, error) {
	return call[PrintRequest, PrintResponse](c, "Print", PrintRequest{DisplayID: displayID, Target: target})
}
