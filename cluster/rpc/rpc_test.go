package rpc_test

import (
	"testing"

	"github.com/nrwiersma/saltconsole/cluster/rpc"
	"github.com/stretchr/testify/assert"
)

func TestJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		jid     string
		wantErr bool
	}{
		{
			name: "Valid",
			jid:  "20190704194624366796",
		},
		{
			name:    "Empty",
			jid:     "",
			wantErr: true,
		},
		{
			name:    "Too Short",
			jid:     "2019070419462436679",
			wantErr: true,
		},
		{
			name:    "Not A Number",
			jid:     "2019070419462436679x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rpc.TargetListsRequest{JobRequest: rpc.JobRequest{JID: tt.jid}}

			err := req.Validate()

			if tt.wantErr {
				assert.Equal(t, rpc.ErrInvalidJID, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
