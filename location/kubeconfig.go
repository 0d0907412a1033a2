// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

package location

import (
	"fmt"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// The deployment-location property names a kubectl connection_type reads
// its kubeconfig material from.
const (
	PropK8sServer                = "k8s-server"
	PropK8sToken                 = "k8s-token"
	PropK8sCertificateAuthority   = "k8s-certificate-authority-data"
	PropK8sClientCertificateData = "k8s-client-certificate-data"
	PropK8sClientKeyData         = "k8s-client-key-data"
)

const (
	clusterName   = "mycluster"
	contextName   = "mycluster-context"
	userName      = "ald-user"
)

// buildKubeconfig constructs the clientcmd API Config for a kubectl
// deployment location from its properties, following the cert-first,
// token-fallback rule.
func buildKubeconfig(props map[string]string) (*clientcmdapi.Config, error) {
	server := props[PropK8sServer]

	cluster := clientcmdapi.NewCluster()
	cluster.Server = server

	authInfo := clientcmdapi.NewAuthInfo()

	certAuth := props[PropK8sCertificateAuthority]
	clientCert := props[PropK8sClientCertificateData]
	clientKey := props[PropK8sClientKeyData]
	token := props[PropK8sToken]

	switch {
	case certAuth != "" && clientCert != "" && clientKey != "":
		cluster.InsecureSkipTLSVerify = false
		cluster.CertificateAuthorityData = []byte(certAuth)
		authInfo.ClientCertificateData = []byte(clientCert)
		authInfo.ClientKeyData = []byte(clientKey)
	case token != "":
		cluster.InsecureSkipTLSVerify = true
		authInfo.Token = token
	default:
		return nil, fmt.Errorf("location: kubectl connection requires either (%s, %s, %s) or %s",
			PropK8sCertificateAuthority, PropK8sClientCertificateData, PropK8sClientKeyData, PropK8sToken)
	}

	context := clientcmdapi.NewContext()
	context.Cluster = clusterName
	context.AuthInfo = userName

	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[clusterName] = cluster
	cfg.AuthInfos[userName] = authInfo
	cfg.Contexts[contextName] = context
	cfg.CurrentContext = contextName

	return cfg, nil
}

// writeKubeconfig renders cfg to path in the array-shaped kubeconfig v1
// YAML tools expect, via client-go's own marshalling so the on-disk
// representation tracks whatever client-go itself considers canonical.
func writeKubeconfig(cfg *clientcmdapi.Config, path string) error {
	return clientcmd.WriteToFile(*cfg, path)
}
