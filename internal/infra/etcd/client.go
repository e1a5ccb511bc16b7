package etcd

import (
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key layout shared by the repositories and the leader election.
const (
	ResultDir         = "/stash/results/"
	ScheduleDir       = "/stash/schedules/"
	LeaderElectionKey = "/stash/leader"
)

func NewClient(endpoints []string, timeout time.Duration) (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd %v: %w", endpoints, err)
	}
	return cli, nil
}
