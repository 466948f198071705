package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/nfs4state/pkg/apiclient"
)

func TestClientList_Rows(t *testing.T) {
	list := ClientList{
		{ClientIDHex: "65f0a1b200000001", Owner: "host-a", Addr: "10.0.0.1:700", Confirmed: true, LeaseRemaining: "80s", Sessions: 1, States: 3},
		{ClientIDHex: "65f0a1b200000002", Owner: "host-b", LeaseRemaining: "0s"},
	}

	rows := list.Rows()
	assert.Len(t, rows, 2)
	assert.Len(t, rows[0], len(list.Headers()))
	assert.Equal(t, []string{"65f0a1b200000001", "host-a", "10.0.0.1:700", "yes", "1m 20s", "1", "3"}, rows[0])
	assert.Equal(t, []string{"65f0a1b200000002", "host-b", "-", "no", "expired", "0", "0"}, rows[1])
}

func TestSessionList_Rows(t *testing.T) {
	list := SessionList{{SessionID: "00ab", ClientIDHex: "65f0a1b200000001", Slots: 8, SlotsInUse: 2, TargetHighestSlot: 7}}
	assert.Equal(t, [][]string{{"00ab", "65f0a1b200000001", "8", "2", "7"}}, list.Rows())
}

func TestClientDetail(t *testing.T) {
	kv := clientDetail(&apiclient.ClientInfo{ClientIDHex: "1", Owner: "o", ReclaimComplete: true})
	assert.Contains(t, kv, [2]string{"Principal", "-"})
	assert.Contains(t, kv, [2]string{"Reclaim complete", "yes"})
}
