package analyzer

import (
	"context"
	"fmt"
	"net/http"

	"buf.build/gen/go/safedep/api/grpc/go/safedep/services/malysis/v1/malysisv1grpc"
	malysisv1pb "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/malysis/v1"
	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	malysisv1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/services/malysis/v1"
	drygrpc "github.com/safedep/dry/adapters/grpc"
	"github.com/safe-chain/guard/config"
	"google.golang.org/grpc"
)

type MalysisQueryAnalyzerConfig struct{}

type malysisQueryAnalyzer struct {
	client malysisv1grpc.MalwareAnalysisServiceClient
	Config MalysisQueryAnalyzerConfig
}

var _ Analyzer = &malysisQueryAnalyzer{}
var _ PackageVersionAnalyzer = &malysisQueryAnalyzer{}

func NewMalysisQueryAnalyzer(config MalysisQueryAnalyzerConfig) (*malysisQueryAnalyzer, error) {
	client, err := drygrpc.GrpcClient("guard-malysis-query",
		"community-api.safedep.io", "443", "", http.Header{}, []grpc.DialOption{})
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}

	return &malysisQueryAnalyzer{
		client: malysisv1grpc.NewMalwareAnalysisServiceClient(client),
		Config: config,
	}, nil
}

func (a *malysisQueryAnalyzer) Name() string {
	return "malysis-query"
}

// Analyze queries the previously computed malware verdict for a package version.
//
// A verified verdict (human or automated confirmation recorded against the package)
// always blocks, regardless of paranoid mode. An unverified inference of malware is
// escalated to a block only in paranoid mode; otherwise the caller is asked to confirm.
func (a *malysisQueryAnalyzer) Analyze(ctx context.Context,
	packageVersion *packagev1.PackageVersion) (*PackageVersionAnalysisResult, error) {

	res, err := a.client.QueryPackageAnalysis(ctx, &malysisv1.QueryPackageAnalysisRequest{
		Target: &malysisv1pb.PackageAnalysisTarget{
			PackageVersion: packageVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query package analysis: %w", err)
	}

	report := res.GetReport()

	pvr := &PackageVersionAnalysisResult{
		PackageVersion: packageVersion,
		AnalysisID:     res.GetAnalysisId(),
		ReferenceURL:   malysisReportUrl(res.GetAnalysisId()),
		Action:         ActionAllow,
		Summary:        report.GetInference().GetSummary(),
		Data:           report,
	}

	if report.GetInference().GetIsMalware() {
		if config.Get().Config.Paranoid {
			pvr.Action = ActionBlock
		} else {
			pvr.Action = ActionConfirm
		}
	}

	if res.GetVerificationRecord().GetIsMalware() {
		pvr.Action = ActionBlock
	}

	return pvr, nil
}

// malysisReportUrl builds a human-readable link to the full malware analysis report.
func malysisReportUrl(analysisID string) string {
	if analysisID == "" {
		return ""
	}

	return fmt.Sprintf("https://app.safedep.io/community/malysis/%s", analysisID)
}
