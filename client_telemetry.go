package mqttsub

// ClientInfo describes a Client for the telemetry endpoint.
type ClientInfo struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	CleanSession bool            `json:"clean_session"`
	Connected    bool            `json:"connected"`
	Session      SessionSnapshot `json:"session"`
}

func (c *Client) clientInfo() ClientInfo {
	username, _, _ := c.cfg.Credentials()

	return ClientInfo{
		Broker:       c.cfg.BrokerURL(),
		ClientID:     c.cfg.ClientID,
		Username:     username,
		CleanSession: c.cfg.CleanSession == nil || *c.cfg.CleanSession,
		Connected:    c.transport.IsConnected(),
		Session:      c.session.Snapshot(),
	}
}
