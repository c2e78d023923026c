package main

import (
	"context"

	"github.com/jfoltran/pgreplicate/internal/config"
	"github.com/jfoltran/pgreplicate/pkg/replicationclient"
)

func connectConfigFrom(d config.DatabaseConfig) replicationclient.ConnectConfig {
	cc := replicationclient.ConnectConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.DBName,
		Username: d.User,
	}
	if d.Password != "" {
		cc.Password = &d.Password
	}
	return cc
}

func connectSource(ctx context.Context) (*replicationclient.Client, error) {
	return replicationclient.ConnectNoTLS(ctx, connectConfigFrom(cfg.Source), logger)
}
